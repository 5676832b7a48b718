package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Repository is the concrete BigQuery-backed store for all reconciliation
// data. It holds a single shared client so that one connection serves every
// operation; callers own the lifecycle and must Close it when done.
type Repository struct {
	client *bigquery.Client
}

// NewRepository creates a Repository with a shared BigQuery client for the
// configured project.
func NewRepository(ctx context.Context) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{
		client: client,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Transactions.

func (r *Repository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, rows)
}

func (r *Repository) QueryTransactionsByDateRange(ctx context.Context, startDate, endDate civil.Date) ([]*TransactionRow, error) {
	return QueryTransactionsByDateRangeWithClient(ctx, r.client, startDate, endDate)
}

func (r *Repository) GetTransaction(ctx context.Context, transactionID string) (*TransactionRow, error) {
	return GetTransactionWithClient(ctx, r.client, transactionID)
}

func (r *Repository) UpdateTransaction(ctx context.Context, row *TransactionRow) error {
	return UpdateTransactionWithClient(ctx, r.client, row)
}

func (r *Repository) DeleteTransaction(ctx context.Context, transactionID string) error {
	return DeleteTransactionWithClient(ctx, r.client, transactionID)
}

func (r *Repository) StampArchivedPeriod(ctx context.Context, periodID string, startDate, endDate civil.Date) error {
	return StampArchivedPeriodWithClient(ctx, r.client, periodID, startDate, endDate)
}

func (r *Repository) ClearArchivedPeriod(ctx context.Context, periodID string) error {
	return ClearArchivedPeriodWithClient(ctx, r.client, periodID)
}

// Periods.

func (r *Repository) InsertPeriod(ctx context.Context, row *PeriodRow) error {
	return InsertPeriodWithClient(ctx, r.client, row)
}

func (r *Repository) ListPeriods(ctx context.Context) ([]*PeriodRow, error) {
	return ListPeriodsWithClient(ctx, r.client)
}

func (r *Repository) GetPeriod(ctx context.Context, periodID string) (*PeriodRow, error) {
	return GetPeriodWithClient(ctx, r.client, periodID)
}

func (r *Repository) FindLatestPeriodBefore(ctx context.Context, before civil.Date) (*PeriodRow, error) {
	return FindLatestPeriodBeforeWithClient(ctx, r.client, before)
}

func (r *Repository) UpdatePeriodStatus(ctx context.Context, periodID, status string, confirmedAt *time.Time) error {
	return UpdatePeriodStatusWithClient(ctx, r.client, periodID, status, confirmedAt)
}

func (r *Repository) UpdatePeriodNote(ctx context.Context, periodID, note string) error {
	return UpdatePeriodNoteWithClient(ctx, r.client, periodID, note)
}

func (r *Repository) DeletePeriod(ctx context.Context, periodID string) error {
	return DeletePeriodWithClient(ctx, r.client, periodID)
}

// Entries.

func (r *Repository) ListEntriesByPeriod(ctx context.Context, periodID string) ([]*EntryRow, error) {
	return ListEntriesByPeriodWithClient(ctx, r.client, periodID)
}

func (r *Repository) GetEntry(ctx context.Context, entryID string) (*EntryRow, error) {
	return GetEntryWithClient(ctx, r.client, entryID)
}

func (r *Repository) InsertEntry(ctx context.Context, row *EntryRow) error {
	return InsertEntryWithClient(ctx, r.client, row)
}

func (r *Repository) UpdateEntryComputed(ctx context.Context, entryID string, actualAmount, carryoverAmount int64, brandBreakdown bigquery.NullJSON) error {
	return UpdateEntryComputedWithClient(ctx, r.client, entryID, actualAmount, carryoverAmount, brandBreakdown)
}

func (r *Repository) UpdateEntryUserFields(ctx context.Context, entryID string, expectedAmount, feeAmount int64, status string, note bigquery.NullString) error {
	return UpdateEntryUserFieldsWithClient(ctx, r.client, entryID, expectedAmount, feeAmount, status, note)
}

func (r *Repository) DeleteEntriesByPeriod(ctx context.Context, periodID string) error {
	return DeleteEntriesByPeriodWithClient(ctx, r.client, periodID)
}

// Groups.

func (r *Repository) ListGroups(ctx context.Context) ([]*GroupRow, error) {
	return ListGroupsWithClient(ctx, r.client)
}

func (r *Repository) InsertGroup(ctx context.Context, row *GroupRow) error {
	return InsertGroupWithClient(ctx, r.client, row)
}

func (r *Repository) UpdateGroup(ctx context.Context, row *GroupRow) error {
	return UpdateGroupWithClient(ctx, r.client, row)
}

func (r *Repository) DeleteGroup(ctx context.Context, groupID string) error {
	return DeleteGroupWithClient(ctx, r.client, groupID)
}

// Slips.

func (r *Repository) InsertSlip(ctx context.Context, row *SlipRow) error {
	return InsertSlipWithClient(ctx, r.client, row)
}

func (r *Repository) UpdateSlipStatus(ctx context.Context, slipID, status string, errorMessage bigquery.NullString) error {
	return UpdateSlipStatusWithClient(ctx, r.client, slipID, status, errorMessage)
}

func (r *Repository) GetSlip(ctx context.Context, slipID string) (*SlipRow, error) {
	return GetSlipWithClient(ctx, r.client, slipID)
}

func (r *Repository) ListSlips(ctx context.Context) ([]*SlipRow, error) {
	return ListSlipsWithClient(ctx, r.client)
}
