package http

import (
	"strings"

	"intake_server/core/port/in"
	"intake_server/pkg/apperr"
	"intake_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ExtractRequest is the body of the single-operation extraction endpoints.
type ExtractRequest struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ExtractionHandler exposes the pipeline operations individually, without persistence.
type ExtractionHandler struct {
	extraction in.ExtractionService
}

func NewExtractionHandler(extraction in.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{extraction: extraction}
}

func (h *ExtractionHandler) Register(router fiber.Router) {
	extract := router.Group("/extract")
	extract.Post("/classify", h.Classify)
	extract.Post("/customer", h.ExtractCustomer)
	extract.Post("/line-items", h.ParseLineItems)
	extract.Get("/stats", h.Stats)
}

func (h *ExtractionHandler) Classify(c *fiber.Ctx) error {
	req, err := parseExtract(c)
	if err != nil {
		return err
	}
	return response.OK(c, h.extraction.Classify(c.UserContext(), req.Subject, req.Body))
}

func (h *ExtractionHandler) ExtractCustomer(c *fiber.Ctx) error {
	req, err := parseExtract(c)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.From) == "" {
		return apperr.MissingField("from")
	}
	return response.OK(c, h.extraction.ExtractCustomer(c.UserContext(), req.From, req.Body, req.Subject))
}

func (h *ExtractionHandler) ParseLineItems(c *fiber.Ctx) error {
	req, err := parseExtract(c)
	if err != nil {
		return err
	}
	return response.OK(c, h.extraction.ParseLineItems(c.UserContext(), req.Body))
}

func (h *ExtractionHandler) Stats(c *fiber.Ctx) error {
	return response.OK(c, h.extraction.GetProcessingStats())
}

func parseExtract(c *fiber.Ctx) (*ExtractRequest, error) {
	var req ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperr.BadRequest("invalid request body")
	}
	return &req, nil
}
