package sheets

import (
	"context"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
)

// fakeAPI is an in-memory spreadsheet with a single data area.
type fakeAPI struct {
	titles  []string
	header  [][]interface{}
	rows    [][]interface{}
	cleared []string
	added   []string
}

func (f *fakeAPI) SheetTitles(_ context.Context, _ string) ([]string, error) {
	return f.titles, nil
}

func (f *fakeAPI) AddSheet(_ context.Context, _, title string) error {
	f.titles = append(f.titles, title)
	f.added = append(f.added, title)
	return nil
}

func (f *fakeAPI) GetValues(_ context.Context, _, readRange string) ([][]interface{}, error) {
	if strings.Contains(readRange, "A1:I1") {
		return f.header, nil
	}
	return f.rows, nil
}

func (f *fakeAPI) UpdateValues(_ context.Context, _, writeRange string, values [][]interface{}) error {
	if strings.Contains(writeRange, "A1:I1") {
		f.header = values
	}
	return nil
}

func (f *fakeAPI) AppendValues(_ context.Context, _, _ string, values [][]interface{}) error {
	f.rows = append(f.rows, values...)
	return nil
}

func (f *fakeAPI) ClearRange(_ context.Context, _, clearRange string) error {
	f.cleared = append(f.cleared, clearRange)
	return nil
}

type fakeTxnSource struct {
	txns []*infraBQ.TransactionRow
}

func (f *fakeTxnSource) QueryTransactionsByDateRange(_ context.Context, _, _ civil.Date) ([]*infraBQ.TransactionRow, error) {
	return f.txns, nil
}

func sheetTxn(id, date, brand string, amount int64) *infraBQ.TransactionRow {
	d, _ := civil.ParseDate(date)
	return &infraBQ.TransactionRow{
		TransactionID:   id,
		UserID:          "ktsuji",
		TransactionDate: bigquery.NullDate{Date: d, Valid: true},
		CardBrand:       bigquery.NullString{StringVal: brand, Valid: true},
		Amount:          amount,
		Confidence:      "high",
		CreatedTS:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// sheetRow builds a fake existing sheet row with the given transaction id in
// the key column.
func sheetRow(txID string) []interface{} {
	return []interface{}{"2026-03-01", "VISA", "売上", "1000", "", "", "high", "", txID}
}

func TestEnsureSheetCreatesSheetAndHeader(t *testing.T) {
	api := &fakeAPI{titles: []string{"メモ"}}

	if err := EnsureSheet(context.Background(), api, "sheet-1"); err != nil {
		t.Fatalf("EnsureSheet: %v", err)
	}

	if len(api.added) != 1 || api.added[0] != SheetTitle {
		t.Errorf("added sheets = %v, want [%s]", api.added, SheetTitle)
	}
	if len(api.header) != 1 || api.header[0][0] != "取引日" {
		t.Errorf("header = %v, want the fixed column row", api.header)
	}
}

func TestEnsureSheetIdempotent(t *testing.T) {
	api := &fakeAPI{
		titles: []string{SheetTitle},
		header: [][]interface{}{headerRow},
	}

	if err := EnsureSheet(context.Background(), api, "sheet-1"); err != nil {
		t.Fatalf("EnsureSheet: %v", err)
	}
	if len(api.added) != 0 {
		t.Errorf("added sheets = %v, want none", api.added)
	}
}

func TestSyncAppendsMissingTransactions(t *testing.T) {
	api := &fakeAPI{
		titles: []string{SheetTitle},
		header: [][]interface{}{headerRow},
		rows:   [][]interface{}{sheetRow("tx-1")},
	}
	source := &fakeTxnSource{txns: []*infraBQ.TransactionRow{
		sheetTxn("tx-1", "2026-03-01", "VISA", 1000),
		sheetTxn("tx-2", "2026-03-02", "JCB", 2500),
	}}

	start, _ := civil.ParseDate("2026-03-01")
	end, _ := civil.ParseDate("2026-03-15")
	if err := SyncTransactions(context.Background(), source, api, "sheet-1", start, end, false); err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	if len(api.rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(api.rows))
	}
	appended := api.rows[1]
	if appended[8] != "tx-2" {
		t.Errorf("appended row key = %v, want tx-2", appended[8])
	}
	if appended[1] != "JCB" {
		t.Errorf("appended row brand = %v, want JCB", appended[1])
	}
	if appended[3] != int64(2500) {
		t.Errorf("appended row amount = %v, want 2500", appended[3])
	}
	if len(api.cleared) != 0 {
		t.Errorf("cleared = %v, want none", api.cleared)
	}
}

func TestSyncClearsStaleRows(t *testing.T) {
	api := &fakeAPI{
		titles: []string{SheetTitle},
		header: [][]interface{}{headerRow},
		rows: [][]interface{}{
			sheetRow("tx-1"),
			sheetRow("tx-gone"),
		},
	}
	source := &fakeTxnSource{txns: []*infraBQ.TransactionRow{
		sheetTxn("tx-1", "2026-03-01", "VISA", 1000),
	}}

	start, _ := civil.ParseDate("2026-03-01")
	end, _ := civil.ParseDate("2026-03-15")
	if err := SyncTransactions(context.Background(), source, api, "sheet-1", start, end, false); err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	// tx-gone was on row 3 (header is row 1).
	if len(api.cleared) != 1 || !strings.Contains(api.cleared[0], "A3:I3") {
		t.Errorf("cleared = %v, want one clear of row 3", api.cleared)
	}
}

func TestSyncSecondRunAppendsNothing(t *testing.T) {
	api := &fakeAPI{
		titles: []string{SheetTitle},
		header: [][]interface{}{headerRow},
	}
	source := &fakeTxnSource{txns: []*infraBQ.TransactionRow{
		sheetTxn("tx-1", "2026-03-01", "VISA", 1000),
	}}

	start, _ := civil.ParseDate("2026-03-01")
	end, _ := civil.ParseDate("2026-03-15")
	for i := 0; i < 2; i++ {
		if err := SyncTransactions(context.Background(), source, api, "sheet-1", start, end, false); err != nil {
			t.Fatalf("SyncTransactions run %d: %v", i+1, err)
		}
	}

	if len(api.rows) != 1 {
		t.Errorf("got %d rows after two runs, want 1", len(api.rows))
	}
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	api := &fakeAPI{
		titles: []string{SheetTitle},
		header: [][]interface{}{headerRow},
		rows:   [][]interface{}{sheetRow("tx-gone")},
	}
	source := &fakeTxnSource{txns: []*infraBQ.TransactionRow{
		sheetTxn("tx-new", "2026-03-01", "VISA", 1000),
	}}

	start, _ := civil.ParseDate("2026-03-01")
	end, _ := civil.ParseDate("2026-03-15")
	if err := SyncTransactions(context.Background(), source, api, "sheet-1", start, end, true); err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	if len(api.rows) != 1 {
		t.Errorf("rows changed under dry run: %v", api.rows)
	}
	if len(api.cleared) != 0 {
		t.Errorf("cleared under dry run: %v", api.cleared)
	}
}

func TestTransactionRowHandlesNulls(t *testing.T) {
	row := transactionRow(&infraBQ.TransactionRow{
		TransactionID: "tx-n",
		Amount:        -500,
		CreatedTS:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	if row[0] != "" {
		t.Errorf("null date rendered as %v, want empty", row[0])
	}
	if row[1] != "" {
		t.Errorf("null brand rendered as %v, want empty", row[1])
	}
	if row[3] != int64(-500) {
		t.Errorf("amount = %v, want -500", row[3])
	}
}
