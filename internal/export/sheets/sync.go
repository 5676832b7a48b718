package sheets

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/logger"
)

const (
	// SheetTitle is the tab holding synced transactions.
	SheetTitle = "取引データ"

	headerRange = SheetTitle + "!A1:I1"
	dataRange   = SheetTitle + "!A2:I"
	fullRange   = SheetTitle + "!A:I"
)

// headerRow is the fixed column layout. The trailing 取引ID column keys rows
// for idempotent re-sync and is hidden from the accountant's view in the
// spreadsheet itself.
var headerRow = []interface{}{
	"取引日", "カード会社", "取扱区分", "取引金額", "伝票番号", "端末番号", "読取確度", "登録日時", "取引ID",
}

// TransactionSource provides the transactions to sync. Satisfied by
// *bigquery.Repository.
type TransactionSource interface {
	QueryTransactionsByDateRange(ctx context.Context, startDate, endDate civil.Date) ([]*infraBQ.TransactionRow, error)
}

// EnsureSheet creates the 取引データ sheet and its header row if missing.
// Safe to call on every sync.
func EnsureSheet(ctx context.Context, api API, spreadsheetID string) error {
	titles, err := api.SheetTitles(ctx, spreadsheetID)
	if err != nil {
		return fmt.Errorf("EnsureSheet: %w", err)
	}

	found := false
	for _, t := range titles {
		if t == SheetTitle {
			found = true
			break
		}
	}
	if !found {
		if err := api.AddSheet(ctx, spreadsheetID, SheetTitle); err != nil {
			return fmt.Errorf("EnsureSheet: %w", err)
		}
	}

	header, err := api.GetValues(ctx, spreadsheetID, headerRange)
	if err != nil {
		return fmt.Errorf("EnsureSheet: reading header: %w", err)
	}
	if len(header) == 0 {
		if err := api.UpdateValues(ctx, spreadsheetID, headerRange, [][]interface{}{headerRow}); err != nil {
			return fmt.Errorf("EnsureSheet: writing header: %w", err)
		}
	}

	return nil
}

// SyncTransactions mirrors the transactions of a date range into the sheet:
//  1. Read existing rows, keyed by the 取引ID column.
//  2. Clear rows whose transaction no longer exists in the range.
//  3. Append transactions the sheet does not have yet.
//
// Rows are never updated in place; an edited transaction shows up as a clear
// plus an append on the next sync.
func SyncTransactions(ctx context.Context, source TransactionSource, api API, spreadsheetID string, startDate, endDate civil.Date, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("start_date", startDate.String()).
		Str("end_date", endDate.String()).
		Bool("dry_run", dryRun).
		Msg("starting transaction sync to sheet")

	if err := EnsureSheet(ctx, api, spreadsheetID); err != nil {
		return err
	}

	txns, err := source.QueryTransactionsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return fmt.Errorf("SyncTransactions: querying transactions: %w", err)
	}

	valid := make(map[string]bool, len(txns))
	for _, t := range txns {
		valid[t.TransactionID] = true
	}

	rows, err := api.GetValues(ctx, spreadsheetID, dataRange)
	if err != nil {
		return fmt.Errorf("SyncTransactions: reading sheet rows: %w", err)
	}

	existing := make(map[string]bool, len(rows))
	var cleared int
	for i, row := range rows {
		txID := cellString(row, 8)
		rowIndex := i + 2 // 1-indexed plus header

		if txID != "" && valid[txID] {
			existing[txID] = true
			continue
		}
		if len(row) == 0 {
			// Already-cleared row from a previous sync.
			continue
		}

		clearRange := fmt.Sprintf("%s!A%d:I%d", SheetTitle, rowIndex, rowIndex)
		if dryRun {
			log.Info().Str("transaction_id", txID).Int("row", rowIndex).Msg("[DRY RUN] would clear stale row")
		} else if err := api.ClearRange(ctx, spreadsheetID, clearRange); err != nil {
			log.Warn().Err(err).Str("transaction_id", txID).Int("row", rowIndex).Msg("failed to clear stale row")
			continue
		}
		cleared++
	}

	var toAppend [][]interface{}
	for _, t := range txns {
		if existing[t.TransactionID] {
			continue
		}
		toAppend = append(toAppend, transactionRow(t))
	}

	if len(toAppend) > 0 && !dryRun {
		if err := api.AppendValues(ctx, spreadsheetID, fullRange, toAppend); err != nil {
			return fmt.Errorf("SyncTransactions: appending rows: %w", err)
		}
	}

	log.Info().
		Int("transactions", len(txns)).
		Int("appended", len(toAppend)).
		Int("cleared", cleared).
		Msg("transaction sync complete")

	return nil
}

// transactionRow maps a transaction onto the sheet's column layout.
func transactionRow(t *infraBQ.TransactionRow) []interface{} {
	dateStr := ""
	if t.TransactionDate.Valid {
		dateStr = t.TransactionDate.Date.String()
	}
	return []interface{}{
		dateStr,
		nullStr(t.CardBrand),
		nullStr(t.TransactionContent),
		t.Amount,
		nullStr(t.SlipNumber),
		nullStr(t.TerminalNumber),
		t.Confidence,
		t.CreatedTS.Format(time.RFC3339),
		t.TransactionID,
	}
}

func nullStr(s bigquery.NullString) string {
	if s.Valid {
		return s.StringVal
	}
	return ""
}

func cellString(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	s, _ := row[idx].(string)
	return s
}
