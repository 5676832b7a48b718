package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

const periodColumns = `
	period_id,
	user_id,
	period_label,
	period_start,
	period_end,
	period_type,
	expected_payment_date,
	status,
	confirmed_at,
	note,
	created_ts,
	updated_ts
`

// InsertPeriodWithClient inserts a new reconciliation period.
func InsertPeriodWithClient(ctx context.Context, client *bigquery.Client, row *PeriodRow) error {
	q := client.Query(`
		INSERT ` + tableRef(periodsTable) + ` (
			period_id, user_id, period_label,
			period_start, period_end, period_type,
			expected_payment_date, status, note, created_ts
		)
		VALUES (
			@period_id, @user_id, @period_label,
			@period_start, @period_end, @period_type,
			@expected_payment_date, @status, @note, @created_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "period_id", Value: row.PeriodID},
		{Name: "user_id", Value: row.UserID},
		{Name: "period_label", Value: row.PeriodLabel},
		{Name: "period_start", Value: row.PeriodStart.String()},
		{Name: "period_end", Value: row.PeriodEnd.String()},
		{Name: "period_type", Value: row.PeriodType},
		{Name: "expected_payment_date", Value: row.ExpectedPaymentDate},
		{Name: "status", Value: row.Status},
		{Name: "note", Value: row.Note},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertPeriod: %w", err)
	}
	return nil
}

// ListPeriodsWithClient returns all periods, newest window first.
func ListPeriodsWithClient(ctx context.Context, client *bigquery.Client) ([]*PeriodRow, error) {
	q := client.Query(`
		SELECT ` + periodColumns + `
		FROM ` + tableRef(periodsTable) + `
		ORDER BY period_start DESC
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPeriods: query read: %w", err)
	}

	var rows []*PeriodRow
	for {
		var r PeriodRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListPeriods: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// GetPeriodWithClient fetches a single period by id. Returns nil if no row
// matches.
func GetPeriodWithClient(ctx context.Context, client *bigquery.Client, periodID string) (*PeriodRow, error) {
	q := client.Query(`
		SELECT ` + periodColumns + `
		FROM ` + tableRef(periodsTable) + `
		WHERE period_id = @period_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "period_id", Value: periodID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetPeriod: query read: %w", err)
	}

	var r PeriodRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPeriod: iter next: %w", err)
	}
	return &r, nil
}

// FindLatestPeriodBeforeWithClient returns the single most recent period whose
// period_start precedes the given date, or nil if none exists. Ties resolve to
// the latest period_start.
func FindLatestPeriodBeforeWithClient(ctx context.Context, client *bigquery.Client, before civil.Date) (*PeriodRow, error) {
	q := client.Query(`
		SELECT ` + periodColumns + `
		FROM ` + tableRef(periodsTable) + `
		WHERE period_start < @before
		ORDER BY period_start DESC
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "before", Value: before.String()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindLatestPeriodBefore: query read: %w", err)
	}

	var r PeriodRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindLatestPeriodBefore: iter next: %w", err)
	}
	return &r, nil
}

// UpdatePeriodStatusWithClient sets the lifecycle status of a period.
// confirmedAt is only written when non-nil (the archive transition).
func UpdatePeriodStatusWithClient(ctx context.Context, client *bigquery.Client, periodID, status string, confirmedAt *time.Time) error {
	var q *bigquery.Query
	if confirmedAt != nil {
		q = client.Query(`
			UPDATE ` + tableRef(periodsTable) + `
			SET status = @status,
			    confirmed_at = @confirmed_at,
			    updated_ts = CURRENT_TIMESTAMP()
			WHERE period_id = @period_id
		`)
		q.Parameters = []bigquery.QueryParameter{
			{Name: "status", Value: status},
			{Name: "confirmed_at", Value: *confirmedAt},
			{Name: "period_id", Value: periodID},
		}
	} else {
		q = client.Query(`
			UPDATE ` + tableRef(periodsTable) + `
			SET status = @status,
			    updated_ts = CURRENT_TIMESTAMP()
			WHERE period_id = @period_id
		`)
		q.Parameters = []bigquery.QueryParameter{
			{Name: "status", Value: status},
			{Name: "period_id", Value: periodID},
		}
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdatePeriodStatus: %w", err)
	}
	return nil
}

// UpdatePeriodNoteWithClient sets the free-text note on a period.
func UpdatePeriodNoteWithClient(ctx context.Context, client *bigquery.Client, periodID, note string) error {
	q := client.Query(`
		UPDATE ` + tableRef(periodsTable) + `
		SET note = @note,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE period_id = @period_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "note", Value: note},
		{Name: "period_id", Value: periodID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdatePeriodNote: %w", err)
	}
	return nil
}

// DeletePeriodWithClient deletes the period row itself. Entries and
// transaction claims are handled by the lifecycle manager before this call.
func DeletePeriodWithClient(ctx context.Context, client *bigquery.Client, periodID string) error {
	q := client.Query(`
		DELETE FROM ` + tableRef(periodsTable) + `
		WHERE period_id = @period_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "period_id", Value: periodID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("DeletePeriod: %w", err)
	}
	return nil
}
