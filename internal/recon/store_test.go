package recon

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
)

// fakeStore is an in-memory Store for engine tests. All methods operate on
// the maps directly; no copy-on-read, so tests can inspect state in place.
type fakeStore struct {
	groups  []*infraBQ.GroupRow
	txns    []*infraBQ.TransactionRow
	periods map[string]*infraBQ.PeriodRow
	entries map[string]*infraBQ.EntryRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		periods: make(map[string]*infraBQ.PeriodRow),
		entries: make(map[string]*infraBQ.EntryRow),
	}
}

func (f *fakeStore) QueryTransactionsByDateRange(_ context.Context, startDate, endDate civil.Date) ([]*infraBQ.TransactionRow, error) {
	var out []*infraBQ.TransactionRow
	for _, t := range f.txns {
		if !t.TransactionDate.Valid {
			continue
		}
		d := t.TransactionDate.Date
		if !d.Before(startDate) && !d.After(endDate) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) StampArchivedPeriod(_ context.Context, periodID string, startDate, endDate civil.Date) error {
	for _, t := range f.txns {
		if !t.TransactionDate.Valid || t.ArchivedPeriodID.Valid {
			continue
		}
		d := t.TransactionDate.Date
		if !d.Before(startDate) && !d.After(endDate) {
			t.ArchivedPeriodID = bigquery.NullString{StringVal: periodID, Valid: true}
		}
	}
	return nil
}

func (f *fakeStore) ClearArchivedPeriod(_ context.Context, periodID string) error {
	for _, t := range f.txns {
		if t.ArchivedPeriodID.Valid && t.ArchivedPeriodID.StringVal == periodID {
			t.ArchivedPeriodID = bigquery.NullString{}
		}
	}
	return nil
}

func (f *fakeStore) InsertPeriod(_ context.Context, row *infraBQ.PeriodRow) error {
	f.periods[row.PeriodID] = row
	return nil
}

func (f *fakeStore) ListPeriods(_ context.Context) ([]*infraBQ.PeriodRow, error) {
	var out []*infraBQ.PeriodRow
	for _, p := range f.periods {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) GetPeriod(_ context.Context, periodID string) (*infraBQ.PeriodRow, error) {
	return f.periods[periodID], nil
}

func (f *fakeStore) FindLatestPeriodBefore(_ context.Context, before civil.Date) (*infraBQ.PeriodRow, error) {
	var best *infraBQ.PeriodRow
	for _, p := range f.periods {
		if !p.PeriodStart.Before(before) {
			continue
		}
		if best == nil || best.PeriodStart.Before(p.PeriodStart) {
			best = p
		}
	}
	return best, nil
}

func (f *fakeStore) UpdatePeriodStatus(_ context.Context, periodID, status string, confirmedAt *time.Time) error {
	p, ok := f.periods[periodID]
	if !ok {
		return fmt.Errorf("period %s not found", periodID)
	}
	p.Status = status
	if confirmedAt != nil {
		p.ConfirmedAt = bigquery.NullTimestamp{Timestamp: *confirmedAt, Valid: true}
	}
	return nil
}

func (f *fakeStore) DeletePeriod(_ context.Context, periodID string) error {
	delete(f.periods, periodID)
	return nil
}

func (f *fakeStore) ListEntriesByPeriod(_ context.Context, periodID string) ([]*infraBQ.EntryRow, error) {
	var out []*infraBQ.EntryRow
	for _, e := range f.entries {
		if e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetEntry(_ context.Context, entryID string) (*infraBQ.EntryRow, error) {
	return f.entries[entryID], nil
}

func (f *fakeStore) InsertEntry(_ context.Context, row *infraBQ.EntryRow) error {
	f.entries[row.EntryID] = row
	return nil
}

func (f *fakeStore) UpdateEntryComputed(_ context.Context, entryID string, actualAmount, carryoverAmount int64, brandBreakdown bigquery.NullJSON) error {
	e, ok := f.entries[entryID]
	if !ok {
		return fmt.Errorf("entry %s not found", entryID)
	}
	e.ActualAmount = actualAmount
	e.CarryoverAmount = carryoverAmount
	e.BrandBreakdown = brandBreakdown
	return nil
}

func (f *fakeStore) UpdateEntryUserFields(_ context.Context, entryID string, expectedAmount, feeAmount int64, status string, note bigquery.NullString) error {
	e, ok := f.entries[entryID]
	if !ok {
		return fmt.Errorf("entry %s not found", entryID)
	}
	e.ExpectedAmount = expectedAmount
	e.FeeAmount = feeAmount
	e.Status = status
	e.Note = note
	return nil
}

func (f *fakeStore) DeleteEntriesByPeriod(_ context.Context, periodID string) error {
	for id, e := range f.entries {
		if e.PeriodID == periodID {
			delete(f.entries, id)
		}
	}
	return nil
}

func (f *fakeStore) ListGroups(_ context.Context) ([]*infraBQ.GroupRow, error) {
	return f.groups, nil
}

// test data helpers

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func txn(id string, d civil.Date, brand, content, paymentType string, count, amount int64) *infraBQ.TransactionRow {
	row := &infraBQ.TransactionRow{
		TransactionID:    id,
		UserID:           "u1",
		TransactionDate:  bigquery.NullDate{Date: d, Valid: true},
		InstallmentCount: count,
		Amount:           amount,
		Confidence:       "high",
		CreatedTS:        time.Now().UTC(),
	}
	if brand != "" {
		row.CardBrand = bigquery.NullString{StringVal: brand, Valid: true}
	}
	if content != "" {
		row.TransactionContent = bigquery.NullString{StringVal: content, Valid: true}
	}
	if paymentType != "" {
		row.PaymentType = bigquery.NullString{StringVal: paymentType, Valid: true}
	}
	return row
}

func period(id string, start, end civil.Date, status string) *infraBQ.PeriodRow {
	return &infraBQ.PeriodRow{
		PeriodID:    id,
		UserID:      "u1",
		PeriodLabel: id,
		PeriodStart: start,
		PeriodEnd:   end,
		PeriodType:  infraBQ.PeriodTypeFirstHalf,
		Status:      status,
		CreatedTS:   time.Now().UTC(),
	}
}

func entry(id, periodID, label string, expected, actual, carryover, fee int64) *infraBQ.EntryRow {
	return &infraBQ.EntryRow{
		EntryID:         id,
		PeriodID:        periodID,
		UserID:          "u1",
		GroupLabel:      label,
		ExpectedAmount:  expected,
		ActualAmount:    actual,
		CarryoverAmount: carryover,
		FeeAmount:       fee,
		Status:          infraBQ.EntryStatusPending,
		CreatedTS:       time.Now().UTC(),
	}
}
