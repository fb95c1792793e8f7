package handlers

import (
	"context"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LiveListingsSource serves the cached live listings view
type LiveListingsSource interface {
	GetLiveListings(ctx context.Context, forceRefresh, includeAll bool) ([]models.LiveListing, error)
}

type MarketHandler struct {
	Listings LiveListingsSource
}

func NewMarketHandler(listings LiveListingsSource) *MarketHandler {
	return &MarketHandler{Listings: listings}
}

// GetLiveListings returns listed IPOs with live prices. ?all=true returns every
// listing instead of the top entries, ?refresh=true bypasses the cache.
func (h *MarketHandler) GetLiveListings(c *fiber.Ctx) error {
	includeAll := c.QueryBool("all", false)
	forceRefresh := c.QueryBool("refresh", false)

	listings, err := h.Listings.GetLiveListings(c.UserContext(), forceRefresh, includeAll)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "MarketHandler",
			"all":       includeAll,
			"refresh":   forceRefresh,
		}).WithError(err).Error("Failed to build live listings")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if listings == nil {
		listings = []models.LiveListing{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    listings,
		"count":   len(listings),
	})
}
