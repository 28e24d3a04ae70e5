package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"skyview/api/internal/models"
	"skyview/api/internal/store"
)

var ErrAlreadySeeded = errors.New("apartment data already seeded")

// ResidenceService covers the building's reference and publishing
// surfaces: the apartment catalogue, announcements, and the admin
// overview numbers.
type ResidenceService struct {
	records store.Store
	log     zerolog.Logger
	now     func() time.Time
}

func NewResidenceService(records store.Store, log zerolog.Logger) *ResidenceService {
	return &ResidenceService{
		records: records,
		log:     log,
		now:     time.Now,
	}
}

func (s *ResidenceService) ListApartments(ctx context.Context) ([]models.Apartment, error) {
	docs, err := s.records.QueryWhere(ctx, models.CollectionApartments, store.All())
	if err != nil {
		return nil, err
	}

	apartments := make([]models.Apartment, 0, len(docs))
	for _, doc := range docs {
		var apt models.Apartment
		if err := doc.Decode(&apt); err != nil {
			return nil, err
		}
		apt.ID = doc.ID
		apartments = append(apartments, apt)
	}
	sort.Slice(apartments, func(i, j int) bool {
		return apartments[i].ApartmentNo < apartments[j].ApartmentNo
	})
	return apartments, nil
}

func (s *ResidenceService) GetApartment(ctx context.Context, id string) (models.Apartment, error) {
	apartments, err := s.ListApartments(ctx)
	if err != nil {
		return models.Apartment{}, err
	}
	for _, apt := range apartments {
		if apt.ID == id {
			return apt, nil
		}
	}
	return models.Apartment{}, fmt.Errorf("apartment %s not found", id)
}

// Seed writes the initial twelve apartments and the launch coupons.
// Refuses to run twice.
func (s *ResidenceService) Seed(ctx context.Context) error {
	existing, err := s.records.QueryWhere(ctx, models.CollectionApartments, store.All())
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ErrAlreadySeeded
	}

	for i := 0; i < 12; i++ {
		block := "A"
		if i%2 == 1 {
			block = "B"
		}
		apt := models.Apartment{
			Floor:       i/4 + 1,
			Block:       block,
			ApartmentNo: 100 + i + 1,
			Rent:        1500 + float64(i)*100,
		}
		if _, err := s.records.Create(ctx, models.CollectionApartments, apt); err != nil {
			return err
		}
	}

	coupons := []models.Coupon{
		{Code: "WELCOME20", Discount: 20, Description: "New member discount", IsAvailable: true},
		{Code: "FALL10", Discount: 10, Description: "Autumn Special", IsAvailable: true},
	}
	for _, coupon := range coupons {
		if _, err := s.records.Create(ctx, models.CollectionCoupons, coupon); err != nil {
			return err
		}
	}

	s.log.Info().Msg("reference data seeded")
	return nil
}

// AttachApartmentImage stores the uploaded image reference on the
// apartment document.
func (s *ResidenceService) AttachApartmentImage(ctx context.Context, apartmentID, imageURL string) error {
	return s.records.Update(ctx, models.CollectionApartments, apartmentID, map[string]any{
		"image": imageURL,
	})
}

func (s *ResidenceService) PostAnnouncement(ctx context.Context, title, description string) (models.Announcement, error) {
	if title == "" || description == "" {
		return models.Announcement{}, fmt.Errorf("title and description required")
	}

	announcement := models.Announcement{
		Title:       title,
		Description: description,
		Date:        s.now().UTC(),
	}
	id, err := s.records.Create(ctx, models.CollectionAnnouncements, announcement)
	if err != nil {
		return models.Announcement{}, err
	}
	announcement.ID = id
	return announcement, nil
}

func (s *ResidenceService) ListAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	docs, err := s.records.QueryWhere(ctx, models.CollectionAnnouncements, store.All())
	if err != nil {
		return nil, err
	}
	return decodeAnnouncements(docs)
}

func (s *ResidenceService) WatchAnnouncements(ctx context.Context, fn func([]models.Announcement)) (store.Subscription, error) {
	return s.records.Subscribe(ctx, models.CollectionAnnouncements, store.All(), func(docs []store.Document) {
		list, err := decodeAnnouncements(docs)
		if err != nil {
			s.log.Warn().Err(err).Msg("announcement snapshot decode failed")
			return
		}
		fn(list)
	})
}

type Stats struct {
	Rooms            int     `json:"rooms"`
	Users            int     `json:"users"`
	Members          int     `json:"members"`
	AvailablePercent float64 `json:"availablePercent"`
	BookedPercent    float64 `json:"bookedPercent"`
}

// Overview computes the admin dashboard numbers from full collection
// reads; fine at this building's scale.
func (s *ResidenceService) Overview(ctx context.Context) (Stats, error) {
	apartments, err := s.records.QueryWhere(ctx, models.CollectionApartments, store.All())
	if err != nil {
		return Stats{}, err
	}
	users, err := s.records.QueryWhere(ctx, models.CollectionUsers, store.All())
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Rooms: len(apartments), Users: len(users)}
	rented := 0
	for _, doc := range users {
		var account models.UserAccount
		if err := doc.Decode(&account); err != nil {
			return Stats{}, err
		}
		if account.Role == models.RoleMember {
			stats.Members++
		}
		if account.RentedApartment != nil {
			rented++
		}
	}

	if stats.Rooms > 0 {
		stats.BookedPercent = float64(rented) / float64(stats.Rooms) * 100
		stats.AvailablePercent = 100 - stats.BookedPercent
	}
	return stats, nil
}

func decodeAnnouncements(docs []store.Document) ([]models.Announcement, error) {
	list := make([]models.Announcement, 0, len(docs))
	for _, doc := range docs {
		var item models.Announcement
		if err := doc.Decode(&item); err != nil {
			return nil, err
		}
		item.ID = doc.ID
		list = append(list, item)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return list, nil
}
