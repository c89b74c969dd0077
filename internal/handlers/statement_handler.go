package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/logger"
	"github.com/baitool/camt053/internal/models"
	"github.com/baitool/camt053/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StatementGenerator produces statements for the HTTP API
type StatementGenerator interface {
	GeneratePeriod(ctx context.Context, iban string, from, to civil.Date) (*services.Result, error)
	GenerateBatch(ctx context.Context, reqs []services.StatementRequest) ([]services.BatchResult, error)
}

type StatementHandler struct {
	service      StatementGenerator
	exporter     *services.ExportService
	validator    *services.ValidationHelper
	maxBatchSize int
	logger       zerolog.Logger
}

func NewStatementHandler(service StatementGenerator, exporter *services.ExportService, maxBatchSize int, logger zerolog.Logger) *StatementHandler {
	if exporter == nil {
		exporter = services.NewExportService()
	}
	if maxBatchSize < 1 {
		maxBatchSize = 100
	}
	return &StatementHandler{
		service:      service,
		exporter:     exporter,
		validator:    services.NewValidationHelper(),
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
}

// BatchRequest lists the accounts to generate. Date and From apply to every
// IBAN in Ibans; Requests may carry their own dates.
type BatchRequest struct {
	From     *civil.Date                 `json:"from,omitempty"`
	Date     *civil.Date                 `json:"date,omitempty"`
	IBANs    []string                    `json:"ibans,omitempty" validate:"dive,iban"`
	Requests []services.StatementRequest `json:"requests,omitempty" validate:"dive"`
}

// BatchItem is the outcome of one batch entry
type BatchItem struct {
	IBAN           string                 `json:"iban"`
	From           string                 `json:"from,omitempty"`
	Date           string                 `json:"date"`
	Status         string                 `json:"status"`
	MessageID      string                 `json:"messageId,omitempty"`
	Entries        int                    `json:"entries"`
	Reconciliation *models.Reconciliation `json:"reconciliation,omitempty"`
	Diagnostics    models.Diagnostics     `json:"diagnostics,omitempty"`
	XML            string                 `json:"xml,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

// Batch item statuses
const (
	StatusGenerated = "generated"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
)

// GetStatement generates the statement of an account for one day, or for the
// period from ?from= through date
// @Summary Generate CAMT.053 statement
// @Description Assemble the end-of-day statement of an account. Returns camt.053.001.02 XML by default.
// @Tags Statements
// @Produce xml
// @Produce json
// @Security BearerAuth
// @Param iban path string true "Account IBAN"
// @Param date path string true "Statement date (YYYY-MM-DD)"
// @Param from query string false "First day of a multi-day statement (YYYY-MM-DD)"
// @Param format query string false "xml, json, pdf or xlsx"
// @Success 200 {string} string "statement document"
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /statements/{iban}/{date} [get]
func (h *StatementHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	iban := services.NormalizeIBAN(chi.URLParam(r, "iban"))
	if !services.IsIBAN(iban) {
		services.SendErrorResponse(w, "Invalid IBAN", http.StatusBadRequest, nil)
		return
	}

	date, err := civil.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid statement date, expected YYYY-MM-DD", http.StatusBadRequest, nil)
		return
	}

	var from civil.Date
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = civil.ParseDate(v); err != nil {
			services.SendErrorResponse(w, "Invalid period start, expected YYYY-MM-DD", http.StatusBadRequest, nil)
			return
		}
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = services.FormatXML
	}
	switch format {
	case services.FormatXML, services.FormatJSON, services.FormatPDF, services.FormatXLSX:
	default:
		services.SendErrorResponse(w, fmt.Sprintf("Unsupported format %q", format), http.StatusBadRequest, nil)
		return
	}

	log := logger.FromContextOr(r.Context(), h.logger)

	res, err := h.service.GeneratePeriod(r.Context(), iban, from, date)
	if err != nil {
		sendGenerateError(w, log, err)
		return
	}

	w.Header().Set("X-Message-Id", res.Document.MessageID)
	w.Header().Set("X-Reconciled", fmt.Sprintf("%t", res.Reconciliation.OK))

	switch format {
	case services.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"messageType":    services.Camt053MessageType,
			"document":       res.Document,
			"reconciliation": res.Reconciliation,
			"diagnostics":    res.Diagnostics,
			"xml":            string(res.XML),
		})
	case services.FormatPDF, services.FormatXLSX:
		data, contentType, err := h.exporter.Export(res.Document, format)
		if err != nil {
			log.Error().Err(err).Str("iban", iban).Str("format", format).Msg("statement export failed")
			services.SendErrorResponse(w, "Failed to export statement", http.StatusInternalServerError, nil)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.DocumentFileName(res.Document, format)))
		w.Write(data)
	default:
		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.DocumentFileName(res.Document, services.FormatXML)))
		w.Write(res.XML)
	}
}

// GenerateBatch generates statements for several accounts
// @Summary Generate statements in batch
// @Description Generate statements for a list of accounts. Each entry reports its own outcome.
// @Tags Statements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BatchRequest true "Batch request"
// @Success 200 {object} object{results=[]BatchItem}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /statements/batch [post]
func (h *StatementHandler) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	reqs, err := req.statementRequests()
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if len(reqs) > h.maxBatchSize {
		services.SendErrorResponse(w, fmt.Sprintf("Batch exceeds %d statements", h.maxBatchSize), http.StatusBadRequest, nil)
		return
	}

	results, err := h.service.GenerateBatch(r.Context(), reqs)
	if err != nil {
		log := logger.FromContextOr(r.Context(), h.logger)
		log.Warn().Err(err).Int("statements", len(reqs)).Msg("batch interrupted")
		services.SendErrorResponse(w, "Batch interrupted", http.StatusServiceUnavailable, nil)
		return
	}

	items := make([]BatchItem, 0, len(results))
	generated := 0
	for _, res := range results {
		item := toBatchItem(res)
		if item.Status == StatusGenerated {
			generated++
		}
		items = append(items, item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total":     len(items),
		"generated": generated,
		"results":   items,
	})
}

func (req BatchRequest) statementRequests() ([]services.StatementRequest, error) {
	reqs := make([]services.StatementRequest, 0, len(req.IBANs)+len(req.Requests))
	if len(req.IBANs) > 0 {
		if req.Date == nil {
			return nil, errors.New("date is required with ibans")
		}
		for _, iban := range req.IBANs {
			reqs = append(reqs, services.StatementRequest{IBAN: iban, From: req.From, Date: *req.Date})
		}
	}
	for _, r := range req.Requests {
		if !r.Date.IsValid() {
			if req.Date == nil {
				return nil, fmt.Errorf("date is required for %s", r.IBAN)
			}
			r.Date = *req.Date
			if r.From == nil {
				r.From = req.From
			}
		}
		reqs = append(reqs, r)
	}
	if len(reqs) == 0 {
		return nil, errors.New("no statements requested")
	}
	return reqs, nil
}

func toBatchItem(res services.BatchResult) BatchItem {
	item := BatchItem{IBAN: res.IBAN, Date: res.Date.String()}
	if res.From != nil {
		item.From = res.From.String()
	}
	switch {
	case res.Err == nil && res.Result != nil:
		reconciliation := res.Result.Reconciliation
		item.Status = StatusGenerated
		item.MessageID = res.Result.Document.MessageID
		item.Entries = len(res.Result.Document.Transactions)
		item.Reconciliation = &reconciliation
		item.Diagnostics = res.Result.Diagnostics
		item.XML = string(res.Result.XML)
	case services.IsFatal(res.Err):
		item.Status = StatusRejected
		item.Error = res.Err.Error()
	default:
		item.Status = StatusFailed
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
	}
	return item
}

func sendGenerateError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidStatementDate):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case services.IsFatal(err):
		services.SendErrorResponse(w, err.Error(), http.StatusUnprocessableEntity, nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		services.SendErrorResponse(w, "Request cancelled", http.StatusServiceUnavailable, nil)
	default:
		log.Error().Err(err).Msg("statement generation failed")
		services.SendErrorResponse(w, "Failed to generate statement", http.StatusInternalServerError, nil)
	}
}
