// Package ingest turns uploaded merchant slip images into transaction rows:
// fetch from GCS, OCR through Gemini, normalize, insert. The slip row tracks
// the parse lifecycle (PENDING → RUNNING → SUCCESS/FAILED).
package ingest

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/logger"
	"github.com/ktsuji/card-recon/internal/slipstore"
)

// Deps carries the pipeline's injected collaborators.
type Deps struct {
	Repo    SlipRepository
	Storage slipstore.StorageService
	Parser  AIParser
}

// IngestSlipFromGCS registers an already-uploaded GCS object as a slip and
// parses it. Used by the CLI ingest path where the object was placed in the
// bucket out of band.
func IngestSlipFromGCS(ctx context.Context, deps Deps, gcsURI, mimeType string) (string, error) {
	slip := &infraBQ.SlipRow{
		SlipID:           uuid.New().String(),
		UserID:           DefaultUserID,
		GCSURI:           gcsURI,
		OriginalFilename: deps.Storage.ExtractFilenameFromGCSURI(gcsURI),
		MimeType:         mimeType,
		ParseStatus:      infraBQ.SlipStatusPending,
		UploadTS:         time.Now().UTC(),
	}
	if err := deps.Repo.InsertSlip(ctx, slip); err != nil {
		return "", fmt.Errorf("IngestSlipFromGCS: creating slip: %w", err)
	}

	if err := ParseSlip(ctx, deps, slip.SlipID); err != nil {
		return slip.SlipID, err
	}
	return slip.SlipID, nil
}

// ParseSlip runs the OCR pipeline for an existing slip: mark RUNNING, fetch
// bytes, extract items with the model, normalize, insert transactions, mark
// SUCCESS. Any step failure marks the slip FAILED with the error message. An
// unreadable slip still leaves a low-confidence placeholder transaction so
// the upload does not silently vanish.
func ParseSlip(ctx context.Context, deps Deps, slipID string) error {
	log := logger.FromContext(ctx)

	slip, err := deps.Repo.GetSlip(ctx, slipID)
	if err != nil {
		return fmt.Errorf("ParseSlip: loading slip: %w", err)
	}
	if slip == nil {
		return fmt.Errorf("ParseSlip: slip %s not found", slipID)
	}

	if err := deps.Repo.UpdateSlipStatus(ctx, slipID, infraBQ.SlipStatusRunning, bigquery.NullString{}); err != nil {
		return fmt.Errorf("ParseSlip: marking running: %w", err)
	}

	fileName := slip.OriginalFilename
	if fileName == "" {
		fileName = deps.Storage.ExtractFilenameFromGCSURI(slip.GCSURI)
	}

	data, err := deps.Storage.FetchFromGCS(ctx, slip.GCSURI)
	if err != nil {
		markFailed(ctx, deps, slipID, err)
		return fmt.Errorf("ParseSlip: fetching slip bytes: %w", err)
	}

	items, err := deps.Parser.ParseSlip(ctx, data, slip.MimeType)
	if err != nil {
		// The slip image exists but could not be read; keep a visible
		// trace in the transaction list.
		if insErr := deps.Repo.InsertTransactions(ctx, []*infraBQ.TransactionRow{errorRow(slip, fileName)}); insErr != nil {
			log.Error().Err(insErr).Str("slip_id", slipID).Msg("inserting error placeholder failed")
		}
		markFailed(ctx, deps, slipID, err)
		return fmt.Errorf("ParseSlip: parsing slip: %w", err)
	}

	rows := make([]*infraBQ.TransactionRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, toTransactionRow(normalizeItem(item), slip, fileName))
	}

	if err := deps.Repo.InsertTransactions(ctx, rows); err != nil {
		markFailed(ctx, deps, slipID, err)
		return fmt.Errorf("ParseSlip: inserting transactions: %w", err)
	}

	if err := deps.Repo.UpdateSlipStatus(ctx, slipID, infraBQ.SlipStatusSuccess, bigquery.NullString{}); err != nil {
		return fmt.Errorf("ParseSlip: marking success: %w", err)
	}

	log.Info().
		Str("slip_id", slipID).
		Int("items", len(rows)).
		Msg("slip parsed")

	return nil
}

// markFailed records a FAILED status with a truncated error message. Failures
// here are logged but do not mask the original error.
func markFailed(ctx context.Context, deps Deps, slipID string, parseErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if parseErr != nil {
		errMsg = parseErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	msg := bigquery.NullString{StringVal: errMsg, Valid: errMsg != ""}
	if err := deps.Repo.UpdateSlipStatus(ctx, slipID, infraBQ.SlipStatusFailed, msg); err != nil {
		log.Error().Err(err).Str("slip_id", slipID).Msg("marking slip failed errored")
	}
}
