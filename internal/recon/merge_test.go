package recon

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
)

func marchFirstHalf(status string) *infraBQ.PeriodRow {
	return period("p-cur", date(2026, time.March, 1), date(2026, time.March, 15), status)
}

func TestRunAggregationCreatesEntries(t *testing.T) {
	store := newFakeStore()
	store.periods["p-cur"] = marchFirstHalf(infraBQ.PeriodStatusOpen)
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "VISA", "売上", "", 1, 10000),
		txn("t2", date(2026, time.March, 5), "JCB", "売上", "分割5回", 5, 3000),
	}
	svc := NewService(store)

	if err := svc.RunAggregation(context.Background(), "p-cur"); err != nil {
		t.Fatalf("RunAggregation: %v", err)
	}

	entries, _ := store.ListEntriesByPeriod(context.Background(), "p-cur")
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Status != infraBQ.EntryStatusPending {
			t.Errorf("new entry %s status = %s, want pending", e.GroupLabel, e.Status)
		}
		if e.ExpectedAmount != 0 || e.FeeAmount != 0 {
			t.Errorf("new entry %s has nonzero user fields", e.GroupLabel)
		}
	}

	if store.periods["p-cur"].Status != infraBQ.PeriodStatusReconciling {
		t.Errorf("period status = %s, want reconciling", store.periods["p-cur"].Status)
	}
}

func TestRunAggregationIdempotent(t *testing.T) {
	store := newFakeStore()
	store.periods["p-cur"] = marchFirstHalf(infraBQ.PeriodStatusOpen)
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "VISA", "売上", "", 1, 10000),
		txn("t2", date(2026, time.March, 8), "VISA", "取消", "", 1, 2500),
	}
	svc := NewService(store)
	ctx := context.Background()

	if err := svc.RunAggregation(ctx, "p-cur"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := store.ListEntriesByPeriod(ctx, "p-cur")

	if err := svc.RunAggregation(ctx, "p-cur"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, _ := store.ListEntriesByPeriod(ctx, "p-cur")

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("entry counts = %d then %d, want 1 and 1", len(first), len(second))
	}
	if second[0].EntryID != first[0].EntryID {
		t.Error("second run created a new entry instead of updating")
	}
	if second[0].ActualAmount != 7500 || second[0].CarryoverAmount != 0 {
		t.Errorf("second run entry = actual %d carry %d, want 7500 and 0",
			second[0].ActualAmount, second[0].CarryoverAmount)
	}
}

func TestRunAggregationPreservesUserFields(t *testing.T) {
	store := newFakeStore()
	store.periods["p-cur"] = marchFirstHalf(infraBQ.PeriodStatusReconciling)
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "VISA", "売上", "", 1, 9000),
	}
	existing := entry("e1", "p-cur", "VISA|一括", 5000, 1, 0, 300)
	existing.Status = infraBQ.EntryStatusMismatched
	existing.Note = bigquery.NullString{StringVal: "入金待ち確認中", Valid: true}
	store.entries["e1"] = existing
	svc := NewService(store)

	if err := svc.RunAggregation(context.Background(), "p-cur"); err != nil {
		t.Fatalf("RunAggregation: %v", err)
	}

	e := store.entries["e1"]
	if e.ActualAmount != 9000 {
		t.Errorf("actual = %d, want 9000 (recomputed)", e.ActualAmount)
	}
	if e.ExpectedAmount != 5000 || e.FeeAmount != 300 {
		t.Errorf("user amounts changed: expected %d fee %d", e.ExpectedAmount, e.FeeAmount)
	}
	if e.Status != infraBQ.EntryStatusMismatched {
		t.Errorf("status = %s, want mismatched preserved", e.Status)
	}
	if !e.Note.Valid || e.Note.StringVal != "入金待ち確認中" {
		t.Errorf("note = %+v, want preserved", e.Note)
	}
}

func TestRunAggregationSkipsEmptyBuckets(t *testing.T) {
	store := newFakeStore()
	store.periods["p-cur"] = marchFirstHalf(infraBQ.PeriodStatusOpen)
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "VISA", "売上", "", 1, 5000),
		txn("t2", date(2026, time.March, 4), "VISA", "取消", "", 1, 5000),
	}
	svc := NewService(store)

	if err := svc.RunAggregation(context.Background(), "p-cur"); err != nil {
		t.Fatalf("RunAggregation: %v", err)
	}
	entries, _ := store.ListEntriesByPeriod(context.Background(), "p-cur")
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0: zero bucket with no user input is suppressed", len(entries))
	}
}

func TestRunAggregationKeepsBucketWithUserInput(t *testing.T) {
	store := newFakeStore()
	store.periods["p-cur"] = marchFirstHalf(infraBQ.PeriodStatusReconciling)
	// No transactions at all, but the user already recorded a deposit.
	store.entries["e1"] = entry("e1", "p-cur", "VISA|一括", 4000, 9999, 0, 0)
	svc := NewService(store)

	if err := svc.RunAggregation(context.Background(), "p-cur"); err != nil {
		t.Fatalf("RunAggregation: %v", err)
	}
	e := store.entries["e1"]
	if e == nil {
		t.Fatal("entry with user input was dropped")
	}
	if e.ActualAmount != 0 {
		t.Errorf("actual = %d, want 0 (recomputed from empty window)", e.ActualAmount)
	}
	if e.ExpectedAmount != 4000 {
		t.Errorf("expected = %d, want 4000 preserved", e.ExpectedAmount)
	}
}

func TestRunAggregationMergesCarryover(t *testing.T) {
	store := newFakeStore()
	prev := period("p-prev", date(2026, time.February, 16), date(2026, time.February, 28), infraBQ.PeriodStatusArchived)
	store.periods["p-prev"] = prev
	store.periods["p-cur"] = marchFirstHalf(infraBQ.PeriodStatusOpen)
	// Previous period left 6000 unsettled for JCB|一括.
	store.entries["e-prev"] = entry("e-prev", "p-prev", "JCB|一括", 4000, 10000, 0, 0)
	// Current window has sales only for VISA.
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "VISA", "売上", "", 1, 8000),
	}
	svc := NewService(store)

	if err := svc.RunAggregation(context.Background(), "p-cur"); err != nil {
		t.Fatalf("RunAggregation: %v", err)
	}

	entries, _ := store.ListEntriesByPeriod(context.Background(), "p-cur")
	byLabel := make(map[string]*infraBQ.EntryRow)
	for _, e := range entries {
		byLabel[e.GroupLabel] = e
	}

	jcb := byLabel["JCB|一括"]
	if jcb == nil {
		t.Fatal("carryover-only bucket was not created")
	}
	if jcb.ActualAmount != 0 || jcb.CarryoverAmount != 6000 {
		t.Errorf("JCB entry = actual %d carry %d, want 0 and 6000", jcb.ActualAmount, jcb.CarryoverAmount)
	}

	visa := byLabel["VISA|一括"]
	if visa == nil {
		t.Fatal("actuals bucket missing")
	}
	if visa.ActualAmount != 8000 || visa.CarryoverAmount != 0 {
		t.Errorf("VISA entry = actual %d carry %d, want 8000 and 0", visa.ActualAmount, visa.CarryoverAmount)
	}
}

func TestRunAggregationRefusesArchivedPeriod(t *testing.T) {
	store := newFakeStore()
	store.periods["p-cur"] = marchFirstHalf(infraBQ.PeriodStatusArchived)
	svc := NewService(store)

	if err := svc.RunAggregation(context.Background(), "p-cur"); err == nil {
		t.Fatal("RunAggregation on archived period succeeded, want error")
	}
}

func TestRunAggregationUnknownPeriod(t *testing.T) {
	svc := NewService(newFakeStore())
	if err := svc.RunAggregation(context.Background(), "missing"); err == nil {
		t.Fatal("RunAggregation on missing period succeeded, want error")
	}
}
