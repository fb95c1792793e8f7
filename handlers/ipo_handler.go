package handlers

import (
	"strings"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/database"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CacheInvalidator drops derived views after records change
type CacheInvalidator interface {
	Invalidate()
}

type IPOHandler struct {
	Store       database.RecordStore
	Invalidator CacheInvalidator
}

func NewIPOHandler(store database.RecordStore, invalidator CacheInvalidator) *IPOHandler {
	return &IPOHandler{Store: store, Invalidator: invalidator}
}

// GetIPOs lists records, newest first. ?status=open,upcoming narrows the list.
func (h *IPOHandler) GetIPOs(c *fiber.Ctx) error {
	var filter database.RecordFilter
	status := c.Query("status", "all")
	if status != "all" {
		for _, part := range strings.Split(status, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Statuses = append(filter.Statuses, models.NormalizeStatus(part))
			}
		}
	}

	records, err := h.Store.Find(c.UserContext(), filter, database.SortByUpdatedDesc)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if records == nil {
		records = []*models.IPORecord{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

func (h *IPOHandler) GetIPOByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid IPO id",
		})
	}

	record, err := h.Store.FindByID(c.UserContext(), id)
	if err != nil {
		status := statusForError(err)
		message := err.Error()
		if status == fiber.StatusNotFound {
			message = "IPO not found"
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// UpsertIPO stores a scraped record keyed by its name
func (h *IPOHandler) UpsertIPO(c *fiber.Ctx) error {
	var record models.IPORecord
	if err := c.BodyParser(&record); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	record.Name = strings.TrimSpace(record.Name)
	if record.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "ipo_name is required",
		})
	}
	record.Status = models.NormalizeStatus(string(record.Status))
	// identity and symbol are owned by the store
	record.ID = uuid.Nil
	record.ResolvedSymbol = nil

	stored, err := h.Store.Upsert(c.UserContext(), &record)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	if h.Invalidator != nil {
		h.Invalidator.Invalidate()
	}

	logrus.WithFields(logrus.Fields{
		"component": "IPOHandler",
		"ipo_name":  stored.Name,
		"id":        stored.ID,
		"status":    stored.Status,
	}).Info("IPO record upserted")

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stored,
	})
}
