package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"skyview/api/internal/billing"
	"skyview/api/internal/config"
	"skyview/api/internal/identity"
	"skyview/api/internal/middleware"
	"skyview/api/internal/models"
	"skyview/api/internal/service"
	"skyview/api/internal/storage"
	"skyview/api/internal/store"
	"skyview/api/internal/workflow"
)

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	db        *pgxpool.Pool
	cache     *redis.Client
	sessions  *identity.SessionStore
	auth      *service.AuthService
	residence *service.ResidenceService
	engine    *workflow.Engine
	billing   *billing.Service
	objects   *storage.ObjectStore
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, objects *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	records := store.NewPostgres(db, cache, log)
	sessions := identity.NewSessionStore(cache)

	return HandlerSet{
		log:       log,
		cfg:       cfg,
		db:        db,
		cache:     cache,
		sessions:  sessions,
		auth:      service.NewAuthService(records, sessions, cfg, log),
		residence: service.NewResidenceService(records, log),
		engine:    workflow.NewEngine(records, log),
		billing:   billing.NewService(records, log),
		objects:   objects,
	}
}

// Engine exposes the agreement workflow for background jobs.
func (h HandlerSet) Engine() *workflow.Engine {
	return h.engine
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.RegisterAccount)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.authRequired(), h.Me)

	v1.GET("/apartments", h.ListApartments)
	v1.GET("/coupons", h.ListAvailableCoupons)

	v1.GET("/announcements", h.authRequired(), h.ListAnnouncements)

	agreements := v1.Group("/agreements", h.authRequired())
	agreements.POST("", middleware.ForbidRoles(models.RoleAdmin), h.SubmitAgreement)

	payments := v1.Group("/payments", h.authRequired(), middleware.RequireRoles(models.RoleMember))
	payments.POST("/quote", h.QuotePayment)
	payments.POST("", h.Pay)
	payments.GET("/history", h.PaymentHistory)

	admin := v1.Group("/admin", h.authRequired(), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/stats", h.AdminStats)
	admin.GET("/agreements/pending", h.ListPendingAgreements)
	admin.POST("/agreements/:id/decision", h.DecideAgreement)
	admin.GET("/members", h.ListMembers)
	admin.POST("/members/:id/demote", h.DemoteMember)
	admin.GET("/coupons", h.ListAllCoupons)
	admin.POST("/coupons", h.CreateCoupon)
	admin.PATCH("/coupons/:id/availability", h.SetCouponAvailability)
	admin.POST("/announcements", h.PostAnnouncement)
	admin.POST("/apartments/seed", h.SeedApartments)
	admin.POST("/apartments/:id/image", h.UploadApartmentImage)
}

func (h HandlerSet) authRequired() gin.HandlerFunc {
	return middleware.Auth(h.cfg, h.auth, h.sessions)
}
