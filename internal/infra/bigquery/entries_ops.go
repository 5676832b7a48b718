package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const entryColumns = `
	entry_id,
	period_id,
	user_id,
	group_label,
	expected_amount,
	actual_amount,
	carryover_amount,
	fee_amount,
	status,
	note,
	brand_breakdown,
	created_ts,
	updated_ts
`

// ListEntriesByPeriodWithClient returns all reconciliation entries of a
// period. Ordering is left to the caller, which sorts by group label with
// locale-aware collation.
func ListEntriesByPeriodWithClient(ctx context.Context, client *bigquery.Client, periodID string) ([]*EntryRow, error) {
	q := client.Query(`
		SELECT ` + entryColumns + `
		FROM ` + tableRef(entriesTable) + `
		WHERE period_id = @period_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "period_id", Value: periodID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListEntriesByPeriod: query read: %w", err)
	}

	var rows []*EntryRow
	for {
		var r EntryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListEntriesByPeriod: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// InsertEntryWithClient inserts a new reconciliation entry.
func InsertEntryWithClient(ctx context.Context, client *bigquery.Client, row *EntryRow) error {
	q := client.Query(`
		INSERT ` + tableRef(entriesTable) + ` (
			entry_id, period_id, user_id, group_label,
			expected_amount, actual_amount, carryover_amount, fee_amount,
			status, note, brand_breakdown, created_ts
		)
		VALUES (
			@entry_id, @period_id, @user_id, @group_label,
			@expected_amount, @actual_amount, @carryover_amount, @fee_amount,
			@status, @note, @brand_breakdown, @created_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "entry_id", Value: row.EntryID},
		{Name: "period_id", Value: row.PeriodID},
		{Name: "user_id", Value: row.UserID},
		{Name: "group_label", Value: row.GroupLabel},
		{Name: "expected_amount", Value: row.ExpectedAmount},
		{Name: "actual_amount", Value: row.ActualAmount},
		{Name: "carryover_amount", Value: row.CarryoverAmount},
		{Name: "fee_amount", Value: row.FeeAmount},
		{Name: "status", Value: row.Status},
		{Name: "note", Value: row.Note},
		{Name: "brand_breakdown", Value: row.BrandBreakdown},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertEntry: %w", err)
	}
	return nil
}

// UpdateEntryComputedWithClient overwrites only the aggregation-derived fields
// of an entry. User-entered fields (expected, fee, note, status) are never
// touched here, which is what makes re-running the aggregation idempotent.
func UpdateEntryComputedWithClient(ctx context.Context, client *bigquery.Client, entryID string, actualAmount, carryoverAmount int64, brandBreakdown bigquery.NullJSON) error {
	q := client.Query(`
		UPDATE ` + tableRef(entriesTable) + `
		SET actual_amount = @actual_amount,
		    carryover_amount = @carryover_amount,
		    brand_breakdown = @brand_breakdown,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE entry_id = @entry_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "actual_amount", Value: actualAmount},
		{Name: "carryover_amount", Value: carryoverAmount},
		{Name: "brand_breakdown", Value: brandBreakdown},
		{Name: "entry_id", Value: entryID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateEntryComputed: %w", err)
	}
	return nil
}

// UpdateEntryUserFieldsWithClient writes the user-editable fields of an entry.
func UpdateEntryUserFieldsWithClient(ctx context.Context, client *bigquery.Client, entryID string, expectedAmount, feeAmount int64, status string, note bigquery.NullString) error {
	q := client.Query(`
		UPDATE ` + tableRef(entriesTable) + `
		SET expected_amount = @expected_amount,
		    fee_amount = @fee_amount,
		    status = @status,
		    note = @note,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE entry_id = @entry_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "expected_amount", Value: expectedAmount},
		{Name: "fee_amount", Value: feeAmount},
		{Name: "status", Value: status},
		{Name: "note", Value: note},
		{Name: "entry_id", Value: entryID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateEntryUserFields: %w", err)
	}
	return nil
}

// GetEntryWithClient fetches a single entry by id. Returns nil if no row
// matches.
func GetEntryWithClient(ctx context.Context, client *bigquery.Client, entryID string) (*EntryRow, error) {
	q := client.Query(`
		SELECT ` + entryColumns + `
		FROM ` + tableRef(entriesTable) + `
		WHERE entry_id = @entry_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "entry_id", Value: entryID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetEntry: query read: %w", err)
	}

	var r EntryRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetEntry: iter next: %w", err)
	}
	return &r, nil
}

// DeleteEntriesByPeriodWithClient removes every entry belonging to a period.
// Called on period deletion before the period row itself goes.
func DeleteEntriesByPeriodWithClient(ctx context.Context, client *bigquery.Client, periodID string) error {
	q := client.Query(`
		DELETE FROM ` + tableRef(entriesTable) + `
		WHERE period_id = @period_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "period_id", Value: periodID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteEntriesByPeriod: %w", err)
	}
	return nil
}
