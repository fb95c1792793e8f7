package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DuplicateFinder proposes merge candidates
type DuplicateFinder interface {
	ScanDuplicates(ctx context.Context) ([]models.MergeCandidate, error)
}

// RecordMerger folds one record into another
type RecordMerger interface {
	Merge(ctx context.Context, masterID, candidateID uuid.UUID) (*models.MergeResult, error)
}

type AdminHandler struct {
	Scanner DuplicateFinder
	Merger  RecordMerger
}

func NewAdminHandler(scanner DuplicateFinder, merger RecordMerger) *AdminHandler {
	return &AdminHandler{
		Scanner: scanner,
		Merger:  merger,
	}
}

// mergeCandidateResponse carries the score as a two-decimal string
type mergeCandidateResponse struct {
	Master    models.RecordRef `json:"master"`
	Candidate models.RecordRef `json:"candidate"`
	Score     string           `json:"score"`
}

type mergeRequest struct {
	MasterID    string `json:"masterId"`
	CandidateID string `json:"candidateId"`
}

// ScanDuplicates runs the duplicate scan over every stored record
func (h *AdminHandler) ScanDuplicates(c *fiber.Ctx) error {
	startTime := time.Now()

	candidates, err := h.Scanner.ScanDuplicates(c.UserContext())
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	data := make([]mergeCandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		data = append(data, mergeCandidateResponse{
			Master:    candidate.Master,
			Candidate: candidate.Candidate,
			Score:     fmt.Sprintf("%.2f", candidate.Score),
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"data":     data,
		"count":    len(data),
		"duration": time.Since(startTime).String(),
	})
}

// MergeRecords merges the JSON body's candidateId into masterId
func (h *AdminHandler) MergeRecords(c *fiber.Ctx) error {
	var request mergeRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	return h.merge(c, request.MasterID, request.CandidateID)
}

// MergeFromLink performs the same merge from ?keep=<master>&merge=<candidate>
func (h *AdminHandler) MergeFromLink(c *fiber.Ctx) error {
	return h.merge(c, c.Query("keep"), c.Query("merge"))
}

func (h *AdminHandler) merge(c *fiber.Ctx, rawMaster, rawCandidate string) error {
	masterID, err := uuid.Parse(rawMaster)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid master id",
		})
	}
	candidateID, err := uuid.Parse(rawCandidate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid candidate id",
		})
	}

	logrus.WithFields(logrus.Fields{
		"component":    "AdminHandler",
		"master_id":    masterID,
		"candidate_id": candidateID,
	}).Info("Merge requested via admin endpoint")

	result, err := h.Merger.Merge(c.UserContext(), masterID, candidateID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": result.Success,
		"message": result.Message,
		"data":    result.Record,
	})
}

// statusForError maps a service error category to an HTTP status
func statusForError(err error) int {
	if shared.IsNotFound(err) {
		return fiber.StatusNotFound
	}
	if category, ok := shared.CategoryOf(err); ok {
		switch category {
		case shared.ErrorCategoryValidation:
			return fiber.StatusBadRequest
		case shared.ErrorCategoryProviderUnavailable:
			return fiber.StatusBadGateway
		case shared.ErrorCategoryDatabase:
			return fiber.StatusServiceUnavailable
		}
	}
	return fiber.StatusInternalServerError
}
