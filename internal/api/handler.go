// Package api exposes single-document extraction over HTTP.
package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-batch/internal/logger"
	"github.com/insightdelivered/statement-batch/internal/models"
)

// maxUpload caps the request body.
const maxUpload = 32 << 20

// Loader reads a PDF from disk into a Document.
type Loader func(path string) (*models.Document, error)

// Processor extracts records from one document.
type Processor interface {
	Process(doc *models.Document) (models.AccountRecord, []models.TransactionRecord, error)
}

// ExtractResponse is the JSON response for /api/extract.
type ExtractResponse struct {
	Success      bool                       `json:"success"`
	Error        string                     `json:"error,omitempty"`
	Account      *models.AccountRecord      `json:"account,omitempty"`
	Transactions []models.TransactionRecord `json:"transactions"`
	Count        int                        `json:"count"`
	TotalDebit   decimal.Decimal            `json:"totalDebit"`
	TotalCredit  decimal.Decimal            `json:"totalCredit"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	load    Loader
	proc    Processor
	log     zerolog.Logger
	version string
}

// NewHandler creates a Handler.
func NewHandler(load Loader, proc Processor, log zerolog.Logger, version string) *Handler {
	return &Handler{load: load, proc: proc, log: log, version: version}
}

// NewApp builds a fiber app with the API routes and JSON error responses.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "statement-batch",
		BodyLimit:             maxUpload,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(h.requestLogger)
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// requestLogger puts a request-scoped logger on the user context.
func (h *Handler) requestLogger(c *fiber.Ctx) error {
	log := h.log.With().
		Str("request_id", uuid.NewString()).
		Str("path", c.Path()).
		Logger()
	c.SetUserContext(logger.WithContext(c.UserContext(), log))
	return c.Next()
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/extract", h.HandleExtract)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.version,
	})
}

// HandleExtract runs the document pipeline on one uploaded statement.
func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	log := logger.FromContext(c.UserContext())

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return fiber.NewError(fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(fh, tmpPath); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}

	doc, err := h.load(tmpPath)
	if err != nil {
		log.Warn().Err(err).Str("pdf_file", fh.Filename).Msg("extraction failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", err))
	}
	doc.Name = filepath.Base(fh.Filename)

	acc, txns, err := h.proc.Process(doc)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("Statement processing failed: %v", err))
	}
	if txns == nil {
		txns = []models.TransactionRecord{}
	}

	debit, credit := models.Totals(txns)
	log.Info().Str("pdf_file", doc.Name).Int("rows", len(txns)).Msg("extracted statement")

	return c.JSON(ExtractResponse{
		Success:      true,
		Account:      &acc,
		Transactions: txns,
		Count:        len(txns),
		TotalDebit:   debit,
		TotalCredit:  credit,
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ExtractResponse{
		Success: false,
		Error:   err.Error(),
	})
}
