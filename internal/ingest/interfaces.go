package ingest

import (
	"context"

	"cloud.google.com/go/bigquery"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
)

// SlipRepository is the persistence surface the ingest pipeline needs.
// Satisfied by *bigquery.Repository.
type SlipRepository interface {
	InsertSlip(ctx context.Context, row *infraBQ.SlipRow) error
	GetSlip(ctx context.Context, slipID string) (*infraBQ.SlipRow, error)
	UpdateSlipStatus(ctx context.Context, slipID, status string, errorMessage bigquery.NullString) error
	InsertTransactions(ctx context.Context, rows []*infraBQ.TransactionRow) error
}

// GroupLister provides the card brand configuration used to steer the OCR
// prompt. Minimal interface to avoid pulling the full repository into the
// parser.
type GroupLister interface {
	ListGroups(ctx context.Context) ([]*infraBQ.GroupRow, error)
}

// AIParser extracts slip items from an uploaded image or PDF.
// This interface enables mocking and testing of the OCR step.
type AIParser interface {
	ParseSlip(ctx context.Context, data []byte, mimeType string) ([]SlipItem, error)
}
