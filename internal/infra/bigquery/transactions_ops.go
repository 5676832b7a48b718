package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// InsertTransactionsWithClient inserts a batch of TransactionRow using the
// provided BigQuery client.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := client.DatasetInProject(projectID, datasetID).Table(transactionsTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}

	return nil
}

// QueryTransactionsByDateRangeWithClient returns all transactions whose
// transaction_date falls in [startDate, endDate] inclusive. Rows with a NULL
// transaction_date never match any range.
func QueryTransactionsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, startDate, endDate civil.Date) ([]*TransactionRow, error) {
	q := client.Query(`
		SELECT
			transaction_id,
			user_id,
			slip_id,
			transaction_date,
			slip_number,
			transaction_content,
			payment_type,
			installment_count,
			terminal_number,
			card_brand,
			amount,
			clerk,
			confidence,
			file_name,
			archived_period_id,
			created_ts,
			updated_ts
		FROM ` + tableRef(transactionsTable) + `
		WHERE transaction_date IS NOT NULL
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, created_ts
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: startDate.String()},
		{Name: "end_date", Value: endDate.String()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// StampArchivedPeriodWithClient claims every unclaimed transaction dated in
// [startDate, endDate] for the given period. The current-NULL check means a
// transaction already claimed by another period is left untouched. The stamp
// is global across users, matching the archive semantics of the UI.
func StampArchivedPeriodWithClient(ctx context.Context, client *bigquery.Client, periodID string, startDate, endDate civil.Date) error {
	q := client.Query(`
		UPDATE ` + tableRef(transactionsTable) + `
		SET archived_period_id = @period_id,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE transaction_date IS NOT NULL
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		  AND archived_period_id IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "period_id", Value: periodID},
		{Name: "start_date", Value: startDate.String()},
		{Name: "end_date", Value: endDate.String()},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("StampArchivedPeriod: %w", err)
	}
	return nil
}

// ClearArchivedPeriodWithClient un-claims all transactions pointing at the
// given period. Used when the period itself is deleted.
func ClearArchivedPeriodWithClient(ctx context.Context, client *bigquery.Client, periodID string) error {
	q := client.Query(`
		UPDATE ` + tableRef(transactionsTable) + `
		SET archived_period_id = NULL,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE archived_period_id = @period_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "period_id", Value: periodID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("ClearArchivedPeriod: %w", err)
	}
	return nil
}

// UpdateTransactionWithClient updates the user-editable fields of a
// transaction. Archived transactions are excluded by the WHERE clause, so
// editing one is a silent no-op at the storage level; callers check the
// archive state first to report it.
func UpdateTransactionWithClient(ctx context.Context, client *bigquery.Client, row *TransactionRow) error {
	q := client.Query(`
		UPDATE ` + tableRef(transactionsTable) + `
		SET transaction_date = @transaction_date,
		    slip_number = @slip_number,
		    transaction_content = @transaction_content,
		    payment_type = @payment_type,
		    installment_count = @installment_count,
		    terminal_number = @terminal_number,
		    card_brand = @card_brand,
		    amount = @amount,
		    clerk = @clerk,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE transaction_id = @transaction_id
		  AND archived_period_id IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "slip_number", Value: row.SlipNumber},
		{Name: "transaction_content", Value: row.TransactionContent},
		{Name: "payment_type", Value: row.PaymentType},
		{Name: "installment_count", Value: row.InstallmentCount},
		{Name: "terminal_number", Value: row.TerminalNumber},
		{Name: "card_brand", Value: row.CardBrand},
		{Name: "amount", Value: row.Amount},
		{Name: "clerk", Value: row.Clerk},
		{Name: "transaction_id", Value: row.TransactionID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	return nil
}

// DeleteTransactionWithClient deletes a single unarchived transaction.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, transactionID string) error {
	q := client.Query(`
		DELETE FROM ` + tableRef(transactionsTable) + `
		WHERE transaction_id = @transaction_id
		  AND archived_period_id IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// GetTransactionWithClient fetches a single transaction by id. Returns nil if
// no row matches.
func GetTransactionWithClient(ctx context.Context, client *bigquery.Client, transactionID string) (*TransactionRow, error) {
	q := client.Query(`
		SELECT
			transaction_id,
			user_id,
			slip_id,
			transaction_date,
			slip_number,
			transaction_content,
			payment_type,
			installment_count,
			terminal_number,
			card_brand,
			amount,
			clerk,
			confidence,
			file_name,
			archived_period_id,
			created_ts,
			updated_ts
		FROM ` + tableRef(transactionsTable) + `
		WHERE transaction_id = @transaction_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: query read: %w", err)
	}

	var r TransactionRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: iter next: %w", err)
	}
	return &r, nil
}
