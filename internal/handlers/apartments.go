package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type apartmentResponse struct {
	ID          string  `json:"id"`
	Floor       int     `json:"floor"`
	Block       string  `json:"block"`
	ApartmentNo int     `json:"apartmentNo"`
	Rent        float64 `json:"rent"`
	Image       string  `json:"image,omitempty"`
}

// ListApartments returns the catalogue; optional minRent/maxRent query
// parameters narrow it the way the listing page's rent filter does.
func (h HandlerSet) ListApartments(c *gin.Context) {
	apartments, err := h.residence.ListApartments(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	minRent := queryFloat(c, "minRent", 0)
	maxRent := queryFloat(c, "maxRent", 0)

	items := make([]apartmentResponse, 0, len(apartments))
	for _, apt := range apartments {
		if minRent > 0 && apt.Rent < minRent {
			continue
		}
		if maxRent > 0 && apt.Rent > maxRent {
			continue
		}
		items = append(items, apartmentResponse{
			ID:          apt.ID,
			Floor:       apt.Floor,
			Block:       apt.Block,
			ApartmentNo: apt.ApartmentNo,
			Rent:        apt.Rent,
			Image:       apt.ImageURL,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) SeedApartments(c *gin.Context) {
	if err := h.residence.Seed(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "reference data seeded"})
}

const maxImageSize = 10 << 20 // 10 MiB

func (h HandlerSet) UploadApartmentImage(c *gin.Context) {
	apartmentID := c.Param("id")
	if _, err := h.residence.GetApartment(c.Request.Context(), apartmentID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "apartment not found"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	url, err := h.objects.PutImage(c.Request.Context(), "apartments", file, header.Size, contentType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.residence.AttachApartmentImage(c.Request.Context(), apartmentID, url); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": url})
}

func queryFloat(c *gin.Context, name string, fallback float64) float64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
