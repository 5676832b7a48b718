package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ktsuji/card-recon/internal/api/middleware"
	"github.com/ktsuji/card-recon/internal/export/sheets"
	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/jobs"
	"github.com/ktsuji/card-recon/internal/normalize"
	"github.com/ktsuji/card-recon/internal/recon"
	"github.com/ktsuji/card-recon/internal/slipstore"
)

// PeriodStore is the period persistence the periods handler needs beyond the
// reconciliation service. Satisfied by *bigquery.Repository.
type PeriodStore interface {
	ListPeriods(ctx context.Context) ([]*infraBQ.PeriodRow, error)
	GetPeriod(ctx context.Context, periodID string) (*infraBQ.PeriodRow, error)
	UpdatePeriodNote(ctx context.Context, periodID, note string) error
}

// PeriodsHandler handles billing-period endpoints.
type PeriodsHandler struct {
	svc    *recon.Service
	store  PeriodStore
	userID string
	log    zerolog.Logger
}

// NewPeriodsHandler creates a new periods handler.
func NewPeriodsHandler(svc *recon.Service, store PeriodStore, userID string, log zerolog.Logger) *PeriodsHandler {
	return &PeriodsHandler{
		svc:    svc,
		store:  store,
		userID: userID,
		log:    log,
	}
}

// ListPeriods handles GET /api/periods
func (h *PeriodsHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	periods, err := h.store.ListPeriods(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list periods")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list periods")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"periods": periods,
		"count":   len(periods),
	})
}

// CreatePeriod handles POST /api/periods
func (h *PeriodsHandler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year       int    `json:"year"`
		Month      int    `json:"month"`
		PeriodType string `json:"period_type"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Year < 2000 || req.Year > 2100 || req.Month < 1 || req.Month > 12 {
		middleware.WriteError(w, http.StatusBadRequest, "year and month are required")
		return
	}

	period, err := h.svc.CreatePeriod(r.Context(), h.userID, req.Year, time.Month(req.Month), req.PeriodType)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create period")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, period)
}

// GetPeriod handles GET /api/periods/{id}
// Returns the period plus its entries with balance and payment status derived.
func (h *PeriodsHandler) GetPeriod(w http.ResponseWriter, r *http.Request, periodID string) {
	ctx := r.Context()

	period, err := h.store.GetPeriod(ctx, periodID)
	if err != nil {
		h.log.Error().Err(err).Str("period_id", periodID).Msg("Failed to get period")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get period")
		return
	}
	if period == nil {
		middleware.WriteError(w, http.StatusNotFound, "Period not found")
		return
	}

	entries, err := h.svc.PeriodEntries(ctx, periodID)
	if err != nil {
		h.log.Error().Err(err).Str("period_id", periodID).Msg("Failed to load entries")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load entries")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"period":  period,
		"entries": entries,
	})
}

// Aggregate handles POST /api/periods/{id}/aggregate
func (h *PeriodsHandler) Aggregate(w http.ResponseWriter, r *http.Request, periodID string) {
	if err := h.svc.RunAggregation(r.Context(), periodID); err != nil {
		h.log.Error().Err(err).Str("period_id", periodID).Msg("Aggregation failed")
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"period_id": periodID,
		"status":    "aggregated",
	})
}

// Archive handles POST /api/periods/{id}/archive
func (h *PeriodsHandler) Archive(w http.ResponseWriter, r *http.Request, periodID string) {
	if err := h.svc.ArchivePeriod(r.Context(), periodID); err != nil {
		h.log.Error().Err(err).Str("period_id", periodID).Msg("Archive failed")
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"period_id": periodID,
		"status":    infraBQ.PeriodStatusArchived,
	})
}

// DeletePeriod handles DELETE /api/periods/{id}
func (h *PeriodsHandler) DeletePeriod(w http.ResponseWriter, r *http.Request, periodID string) {
	if err := h.svc.DeletePeriod(r.Context(), periodID); err != nil {
		h.log.Error().Err(err).Str("period_id", periodID).Msg("Delete failed")
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"period_id": periodID,
		"status":    "deleted",
	})
}

// UpdateNote handles PATCH /api/periods/{id}
func (h *PeriodsHandler) UpdateNote(w http.ResponseWriter, r *http.Request, periodID string) {
	var req struct {
		Note string `json:"note"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.UpdatePeriodNote(r.Context(), periodID, req.Note); err != nil {
		h.log.Error().Err(err).Str("period_id", periodID).Msg("Failed to update period note")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update period note")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"period_id": periodID,
		"status":    "updated",
	})
}

// EntriesHandler handles reconciliation-entry endpoints.
type EntriesHandler struct {
	svc *recon.Service
	log zerolog.Logger
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(svc *recon.Service, log zerolog.Logger) *EntriesHandler {
	return &EntriesHandler{
		svc: svc,
		log: log,
	}
}

// UpdateEntry handles PATCH /api/entries/{id}
// Accepts any subset of expected_amount, fee_amount and note; absent fields
// are untouched.
func (h *EntriesHandler) UpdateEntry(w http.ResponseWriter, r *http.Request, entryID string) {
	var req struct {
		ExpectedAmount *int64  `json:"expected_amount"`
		FeeAmount      *int64  `json:"fee_amount"`
		Note           *string `json:"note"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.svc.EditEntry(r.Context(), entryID, recon.EntryEdit{
		ExpectedAmount: req.ExpectedAmount,
		FeeAmount:      req.FeeAmount,
		Note:           req.Note,
	})
	if err != nil {
		h.log.Error().Err(err).Str("entry_id", entryID).Msg("Entry edit failed")
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, entry)
}

// TransactionStore is the transaction persistence surface of the transactions
// handler. Satisfied by *bigquery.Repository.
type TransactionStore interface {
	QueryTransactionsByDateRange(ctx context.Context, startDate, endDate civil.Date) ([]*infraBQ.TransactionRow, error)
	GetTransaction(ctx context.Context, transactionID string) (*infraBQ.TransactionRow, error)
	InsertTransactions(ctx context.Context, rows []*infraBQ.TransactionRow) error
	UpdateTransaction(ctx context.Context, row *infraBQ.TransactionRow) error
	DeleteTransaction(ctx context.Context, transactionID string) error
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	store  TransactionStore
	userID string
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store TransactionStore, userID string, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store:  store,
		userID: userID,
		log:    log,
	}
}

// transactionRequest is the JSON body of manual create and update calls.
type transactionRequest struct {
	TransactionDate    string `json:"transaction_date"`
	SlipNumber         string `json:"slip_number"`
	TransactionContent string `json:"transaction_content"`
	PaymentType        string `json:"payment_type"`
	InstallmentCount   int64  `json:"installment_count"`
	TerminalNumber     string `json:"terminal_number"`
	CardBrand          string `json:"card_brand"`
	Amount             int64  `json:"amount"`
	Clerk              string `json:"clerk"`
}

// toRow normalizes the free-text fields the same way the OCR pipeline does,
// so manual entries and parsed entries aggregate under the same keys.
func (req *transactionRequest) toRow(transactionID, userID string) (*infraBQ.TransactionRow, error) {
	row := &infraBQ.TransactionRow{
		TransactionID:      transactionID,
		UserID:             userID,
		SlipNumber:         nullString(normalize.Text(req.SlipNumber)),
		TransactionContent: nullString(normalize.Text(req.TransactionContent)),
		PaymentType:        nullString(normalize.PaymentType(req.PaymentType)),
		InstallmentCount:   req.InstallmentCount,
		TerminalNumber:     nullString(normalize.Text(req.TerminalNumber)),
		CardBrand:          nullString(normalize.CardBrand(req.CardBrand)),
		Amount:             req.Amount,
		Clerk:              nullString(normalize.Text(req.Clerk)),
		Confidence:         "high", // manual entry is authoritative
	}
	if row.InstallmentCount <= 0 {
		row.InstallmentCount = 1
	}
	if req.TransactionDate != "" {
		d, err := civil.ParseDate(req.TransactionDate)
		if err != nil {
			return nil, err
		}
		row.TransactionDate = bigquery.NullDate{Date: d, Valid: true}
	}
	return row, nil
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	startDateStr := query.Get("start_date")
	endDateStr := query.Get("end_date")

	var startDate, endDate civil.Date
	var err error

	if startDateStr != "" {
		startDate, err = civil.ParseDate(startDateStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	} else {
		startDate = civil.DateOf(time.Now().AddDate(-1, 0, 0))
	}

	if endDateStr != "" {
		endDate, err = civil.ParseDate(endDateStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
	} else {
		endDate = civil.DateOf(time.Now())
	}

	transactions, err := h.store.QueryTransactionsByDateRange(ctx, startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []*infraBQ.TransactionRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	row, err := req.toRow(uuid.New().String(), h.userID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction_date format")
		return
	}
	row.CreatedTS = time.Now().UTC()

	if err := h.store.InsertTransactions(r.Context(), []*infraBQ.TransactionRow{row}); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to insert transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, row)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	ctx := r.Context()

	existing, err := h.store.GetTransaction(ctx, transactionID)
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get transaction")
		return
	}
	if existing == nil {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if existing.ArchivedPeriodID.Valid {
		middleware.WriteError(w, http.StatusConflict, "Transaction belongs to an archived period")
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	row, err := req.toRow(transactionID, existing.UserID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction_date format")
		return
	}

	if err := h.store.UpdateTransaction(ctx, row); err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"transaction_id": transactionID,
		"status":         "updated",
	})
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	ctx := r.Context()

	existing, err := h.store.GetTransaction(ctx, transactionID)
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get transaction")
		return
	}
	if existing == nil {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if existing.ArchivedPeriodID.Valid {
		middleware.WriteError(w, http.StatusConflict, "Transaction belongs to an archived period")
		return
	}

	if err := h.store.DeleteTransaction(ctx, transactionID); err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"transaction_id": transactionID,
		"status":         "deleted",
	})
}

// GroupStore is the payee-group persistence surface. Satisfied by
// *bigquery.Repository.
type GroupStore interface {
	ListGroups(ctx context.Context) ([]*infraBQ.GroupRow, error)
	InsertGroup(ctx context.Context, row *infraBQ.GroupRow) error
	UpdateGroup(ctx context.Context, row *infraBQ.GroupRow) error
	DeleteGroup(ctx context.Context, groupID string) error
}

// GroupsHandler handles payee-group endpoints.
type GroupsHandler struct {
	store  GroupStore
	userID string
	log    zerolog.Logger
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(store GroupStore, userID string, log zerolog.Logger) *GroupsHandler {
	return &GroupsHandler{
		store:  store,
		userID: userID,
		log:    log,
	}
}

type groupRequest struct {
	GroupName string   `json:"group_name"`
	Brands    []string `json:"brands"`
	SortOrder int64    `json:"sort_order"`
}

// ListGroups handles GET /api/groups
func (h *GroupsHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.ListGroups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list groups")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list groups")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"groups": groups,
		"count":  len(groups),
	})
}

// CreateGroup handles POST /api/groups
func (h *GroupsHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.GroupName == "" {
		middleware.WriteError(w, http.StatusBadRequest, "group_name is required")
		return
	}

	row := &infraBQ.GroupRow{
		GroupID:   uuid.New().String(),
		UserID:    h.userID,
		GroupName: normalize.Text(req.GroupName),
		Brands:    normalizeBrands(req.Brands),
		SortOrder: req.SortOrder,
		CreatedTS: time.Now().UTC(),
	}

	if err := h.store.InsertGroup(r.Context(), row); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert group")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to insert group")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, row)
}

// UpdateGroup handles PUT /api/groups/{id}
func (h *GroupsHandler) UpdateGroup(w http.ResponseWriter, r *http.Request, groupID string) {
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.GroupName == "" {
		middleware.WriteError(w, http.StatusBadRequest, "group_name is required")
		return
	}

	row := &infraBQ.GroupRow{
		GroupID:   groupID,
		UserID:    h.userID,
		GroupName: normalize.Text(req.GroupName),
		Brands:    normalizeBrands(req.Brands),
		SortOrder: req.SortOrder,
	}

	if err := h.store.UpdateGroup(r.Context(), row); err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("Failed to update group")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update group")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"group_id": groupID,
		"status":   "updated",
	})
}

// DeleteGroup handles DELETE /api/groups/{id}
func (h *GroupsHandler) DeleteGroup(w http.ResponseWriter, r *http.Request, groupID string) {
	if err := h.store.DeleteGroup(r.Context(), groupID); err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("Failed to delete group")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete group")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"group_id": groupID,
		"status":   "deleted",
	})
}

// SlipStore is the slip persistence surface. Satisfied by
// *bigquery.Repository.
type SlipStore interface {
	InsertSlip(ctx context.Context, row *infraBQ.SlipRow) error
	GetSlip(ctx context.Context, slipID string) (*infraBQ.SlipRow, error)
	ListSlips(ctx context.Context) ([]*infraBQ.SlipRow, error)
}

// SlipsHandler handles slip upload and OCR endpoints.
type SlipsHandler struct {
	store     SlipStore
	storage   slipstore.StorageService
	publisher jobs.Publisher
	bucket    string
	userID    string
	log       zerolog.Logger
}

// NewSlipsHandler creates a new slips handler.
func NewSlipsHandler(store SlipStore, storage slipstore.StorageService, publisher jobs.Publisher, bucket, userID string, log zerolog.Logger) *SlipsHandler {
	return &SlipsHandler{
		store:     store,
		storage:   storage,
		publisher: publisher,
		bucket:    bucket,
		userID:    userID,
		log:       log,
	}
}

// ListSlips handles GET /api/slips
func (h *SlipsHandler) ListSlips(w http.ResponseWriter, r *http.Request) {
	slips, err := h.store.ListSlips(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list slips")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list slips")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slips": slips,
		"count": len(slips),
	})
}

// GetSlip handles GET /api/slips/{id}
func (h *SlipsHandler) GetSlip(w http.ResponseWriter, r *http.Request, slipID string) {
	slip, err := h.store.GetSlip(r.Context(), slipID)
	if err != nil {
		h.log.Error().Err(err).Str("slip_id", slipID).Msg("Failed to get slip")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get slip")
		return
	}
	if slip == nil {
		middleware.WriteError(w, http.StatusNotFound, "Slip not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, slip)
}

// UploadSlip handles POST /api/slips/upload
// The request body is the raw image or PDF; the original filename rides in the
// X-Slip-Filename header or the filename query parameter. The slip is stored
// in GCS, registered as PENDING and handed to the OCR worker.
func (h *SlipsHandler) UploadSlip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Slip uploads are not configured")
		return
	}

	mimeType := r.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	filename := r.Header.Get("X-Slip-Filename")
	if filename == "" {
		filename = r.URL.Query().Get("filename")
	}
	if filename == "" {
		filename = "slip"
	}

	slipID := uuid.New().String()
	now := time.Now().UTC()
	objectName := slipstore.ObjectName(slipID, filename, now)

	gcsURI, err := h.storage.UploadSlip(ctx, h.bucket, objectName, r.Body)
	if err != nil {
		h.log.Error().Err(err).Str("slip_id", slipID).Msg("Failed to upload slip to GCS")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload slip")
		return
	}

	slip := &infraBQ.SlipRow{
		SlipID:           slipID,
		UserID:           h.userID,
		GCSURI:           gcsURI,
		OriginalFilename: filename,
		MimeType:         mimeType,
		ParseStatus:      infraBQ.SlipStatusPending,
		UploadTS:         now,
	}
	if err := h.store.InsertSlip(ctx, slip); err != nil {
		h.log.Error().Err(err).Str("slip_id", slipID).Msg("Failed to save slip metadata")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save slip metadata")
		return
	}

	job := &jobs.ParseSlipJob{
		SlipID: slipID,
		GCSURI: gcsURI,
	}
	if err := h.publisher.PublishParseSlip(ctx, job); err != nil {
		h.log.Error().Err(err).Str("slip_id", slipID).Msg("Failed to enqueue OCR job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue OCR job")
		return
	}

	h.log.Info().
		Str("slip_id", slipID).
		Str("job_id", job.JobID).
		Str("gcs_uri", gcsURI).
		Msg("Slip uploaded and OCR job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"slip_id": slipID,
		"job_id":  job.JobID,
		"gcs_uri": gcsURI,
		"status":  slip.ParseStatus,
	})
}

// ParseSlip handles POST /api/slips/parse
// Re-enqueues the OCR job for an existing slip, typically after a FAILED
// parse.
func (h *SlipsHandler) ParseSlip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SlipID string `json:"slip_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SlipID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "slip_id is required")
		return
	}

	ctx := r.Context()

	slip, err := h.store.GetSlip(ctx, req.SlipID)
	if err != nil {
		h.log.Error().Err(err).Str("slip_id", req.SlipID).Msg("Failed to get slip")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get slip")
		return
	}
	if slip == nil {
		middleware.WriteError(w, http.StatusNotFound, "Slip not found")
		return
	}

	job := &jobs.ParseSlipJob{
		SlipID: slip.SlipID,
		GCSURI: slip.GCSURI,
	}
	if err := h.publisher.PublishParseSlip(ctx, job); err != nil {
		h.log.Error().Err(err).Str("slip_id", slip.SlipID).Msg("Failed to enqueue OCR job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue OCR job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("slip_id", slip.SlipID).Msg("OCR job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"slip_id": slip.SlipID,
		"job_id":  job.JobID,
		"status":  string(job.Status),
	})
}

// ExportHandler handles spreadsheet export endpoints.
type ExportHandler struct {
	source        sheets.TransactionSource
	newAPI        func(ctx context.Context) (sheets.API, error)
	spreadsheetID string
	log           zerolog.Logger
}

// NewExportHandler creates a new export handler. newAPI builds the Sheets
// client on demand so the server starts even without spreadsheet credentials.
func NewExportHandler(source sheets.TransactionSource, newAPI func(ctx context.Context) (sheets.API, error), spreadsheetID string, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		source:        source,
		newAPI:        newAPI,
		spreadsheetID: spreadsheetID,
		log:           log,
	}
}

// ExportSheets handles POST /api/export/sheets
func (h *ExportHandler) ExportSheets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpreadsheetID string `json:"spreadsheet_id"`
		StartDate     string `json:"start_date"`
		EndDate       string `json:"end_date"`
		DryRun        bool   `json:"dry_run"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	spreadsheetID := req.SpreadsheetID
	if spreadsheetID == "" {
		spreadsheetID = h.spreadsheetID
	}
	if spreadsheetID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	startDate, err := civil.ParseDate(req.StartDate)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
		return
	}
	endDate, err := civil.ParseDate(req.EndDate)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
		return
	}

	ctx := r.Context()

	api, err := h.newAPI(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create Sheets client")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create Sheets client")
		return
	}

	if err := sheets.SyncTransactions(ctx, h.source, api, spreadsheetID, startDate, endDate, req.DryRun); err != nil {
		h.log.Error().Err(err).Msg("Sheet export failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Sheet export failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"spreadsheet_id": spreadsheetID,
		"start_date":     req.StartDate,
		"end_date":       req.EndDate,
		"dry_run":        req.DryRun,
		"status":         "synced",
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		SlipID: query.Get("slip_id"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func normalizeBrands(brands []string) []string {
	out := make([]string, 0, len(brands))
	for _, b := range brands {
		b = strings.TrimSpace(normalize.CardBrand(b))
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}
