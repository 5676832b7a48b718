package recon

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
)

// Store is the persistence surface the reconciliation engine needs. It is
// satisfied by *bigquery.Repository; tests plug in func-field fakes.
type Store interface {
	QueryTransactionsByDateRange(ctx context.Context, startDate, endDate civil.Date) ([]*infraBQ.TransactionRow, error)
	StampArchivedPeriod(ctx context.Context, periodID string, startDate, endDate civil.Date) error
	ClearArchivedPeriod(ctx context.Context, periodID string) error

	InsertPeriod(ctx context.Context, row *infraBQ.PeriodRow) error
	ListPeriods(ctx context.Context) ([]*infraBQ.PeriodRow, error)
	GetPeriod(ctx context.Context, periodID string) (*infraBQ.PeriodRow, error)
	FindLatestPeriodBefore(ctx context.Context, before civil.Date) (*infraBQ.PeriodRow, error)
	UpdatePeriodStatus(ctx context.Context, periodID, status string, confirmedAt *time.Time) error
	DeletePeriod(ctx context.Context, periodID string) error

	ListEntriesByPeriod(ctx context.Context, periodID string) ([]*infraBQ.EntryRow, error)
	GetEntry(ctx context.Context, entryID string) (*infraBQ.EntryRow, error)
	InsertEntry(ctx context.Context, row *infraBQ.EntryRow) error
	UpdateEntryComputed(ctx context.Context, entryID string, actualAmount, carryoverAmount int64, brandBreakdown bigquery.NullJSON) error
	UpdateEntryUserFields(ctx context.Context, entryID string, expectedAmount, feeAmount int64, status string, note bigquery.NullString) error
	DeleteEntriesByPeriod(ctx context.Context, periodID string) error

	ListGroups(ctx context.Context) ([]*infraBQ.GroupRow, error)
}

// Service runs aggregation and period lifecycle operations against a Store.
type Service struct {
	store Store
}

// NewService creates a reconciliation Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}
