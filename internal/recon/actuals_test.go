package recon

import (
	"context"
	"testing"
	"time"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
)

func nicosGroup() *infraBQ.GroupRow {
	return &infraBQ.GroupRow{
		GroupID:   "g1",
		UserID:    "u1",
		GroupName: "三菱UFJニコス",
		Brands:    []string{"VISA", "Mastercard"},
		SortOrder: 1,
	}
}

func TestComputeActualsSignedGrouping(t *testing.T) {
	store := newFakeStore()
	store.groups = []*infraBQ.GroupRow{nicosGroup()}
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "VISA", "売上", "1回払い", 1, 10000),
		txn("t2", date(2026, time.March, 5), "Mastercard", "売上", "", 1, 4000),
		txn("t3", date(2026, time.March, 8), "VISA", "取消", "1回払い", 1, 3000),
		txn("t4", date(2026, time.March, 9), "JCB", "返品", "", 1, 2000),
	}
	svc := NewService(store)

	actuals, err := svc.ComputeActuals(context.Background(), date(2026, time.March, 1), date(2026, time.March, 15))
	if err != nil {
		t.Fatalf("ComputeActuals: %v", err)
	}

	if len(actuals) != 2 {
		t.Fatalf("got %d buckets, want 2", len(actuals))
	}

	byLabel := make(map[string]GroupActual)
	for _, a := range actuals {
		byLabel[a.GroupLabel] = a
	}

	nicos, ok := byLabel["三菱UFJニコス|一括"]
	if !ok {
		t.Fatal("missing 三菱UFJニコス|一括 bucket")
	}
	if nicos.TotalAmount != 11000 {
		t.Errorf("nicos total = %d, want 11000 (10000+4000-3000)", nicos.TotalAmount)
	}
	if len(nicos.Brands) != 2 {
		t.Errorf("nicos brand breakdown has %d brands, want 2", len(nicos.Brands))
	}

	jcb, ok := byLabel["JCB|一括"]
	if !ok {
		t.Fatal("missing JCB|一括 bucket (ungrouped brand aggregates under its own name)")
	}
	if jcb.TotalAmount != -2000 {
		t.Errorf("jcb total = %d, want -2000 (返品 negates)", jcb.TotalAmount)
	}
}

func TestComputeActualsDateRangeInclusive(t *testing.T) {
	store := newFakeStore()
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 1), "VISA", "売上", "", 1, 100),
		txn("t2", date(2026, time.March, 15), "VISA", "売上", "", 1, 200),
		txn("t3", date(2026, time.March, 16), "VISA", "売上", "", 1, 400),
		txn("t4", date(2026, time.February, 28), "VISA", "売上", "", 1, 800),
	}
	svc := NewService(store)

	actuals, err := svc.ComputeActuals(context.Background(), date(2026, time.March, 1), date(2026, time.March, 15))
	if err != nil {
		t.Fatalf("ComputeActuals: %v", err)
	}
	if len(actuals) != 1 {
		t.Fatalf("got %d buckets, want 1", len(actuals))
	}
	if actuals[0].TotalAmount != 300 {
		t.Errorf("total = %d, want 300 (both endpoints inclusive)", actuals[0].TotalAmount)
	}
}

func TestComputeActualsZeroSuppression(t *testing.T) {
	store := newFakeStore()
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "VISA", "売上", "", 1, 5000),
		txn("t2", date(2026, time.March, 4), "VISA", "取消", "", 1, 5000),
		txn("t3", date(2026, time.March, 5), "JCB", "売上", "", 1, 1000),
	}
	svc := NewService(store)

	actuals, err := svc.ComputeActuals(context.Background(), date(2026, time.March, 1), date(2026, time.March, 15))
	if err != nil {
		t.Fatalf("ComputeActuals: %v", err)
	}
	if len(actuals) != 1 {
		t.Fatalf("got %d buckets, want 1 (zero bucket dropped)", len(actuals))
	}
	if actuals[0].GroupLabel != "JCB|一括" {
		t.Errorf("surviving bucket = %s, want JCB|一括", actuals[0].GroupLabel)
	}
}

func TestComputeActualsUnknownBrand(t *testing.T) {
	store := newFakeStore()
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "", "売上", "", 1, 700),
	}
	svc := NewService(store)

	actuals, err := svc.ComputeActuals(context.Background(), date(2026, time.March, 1), date(2026, time.March, 15))
	if err != nil {
		t.Fatalf("ComputeActuals: %v", err)
	}
	if len(actuals) != 1 {
		t.Fatalf("got %d buckets, want 1", len(actuals))
	}
	if actuals[0].GroupLabel != "不明|一括" {
		t.Errorf("bucket = %s, want 不明|一括", actuals[0].GroupLabel)
	}
}

func TestComputeActualsCategorySplit(t *testing.T) {
	store := newFakeStore()
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "VISA", "売上", "1回払い", 1, 1000),
		txn("t2", date(2026, time.March, 4), "VISA", "売上", "分割2回", 2, 2000),
		txn("t3", date(2026, time.March, 5), "VISA", "売上", "分割10回", 10, 3000),
		txn("t4", date(2026, time.March, 6), "VISA", "売上", "ボーナス一括", 1, 4000),
	}
	svc := NewService(store)

	actuals, err := svc.ComputeActuals(context.Background(), date(2026, time.March, 1), date(2026, time.March, 15))
	if err != nil {
		t.Fatalf("ComputeActuals: %v", err)
	}
	if len(actuals) != 4 {
		t.Fatalf("got %d buckets, want 4 (one per category)", len(actuals))
	}

	// Same payee: fixed category order 一括, 2回, その他, ボーナス.
	wantOrder := []string{"VISA|一括", "VISA|2回", "VISA|その他", "VISA|ボーナス"}
	for i, want := range wantOrder {
		if actuals[i].GroupLabel != want {
			t.Errorf("actuals[%d] = %s, want %s", i, actuals[i].GroupLabel, want)
		}
	}
}

func TestComputeActualsPayeeCollationOrder(t *testing.T) {
	store := newFakeStore()
	store.groups = []*infraBQ.GroupRow{
		{GroupID: "g1", UserID: "u1", GroupName: "みずほカード", Brands: []string{"VISA"}},
		{GroupID: "g2", UserID: "u1", GroupName: "あおぞらカード", Brands: []string{"JCB"}},
	}
	store.txns = []*infraBQ.TransactionRow{
		txn("t1", date(2026, time.March, 3), "VISA", "売上", "", 1, 1000),
		txn("t2", date(2026, time.March, 4), "JCB", "売上", "", 1, 2000),
	}
	svc := NewService(store)

	actuals, err := svc.ComputeActuals(context.Background(), date(2026, time.March, 1), date(2026, time.March, 15))
	if err != nil {
		t.Fatalf("ComputeActuals: %v", err)
	}
	if len(actuals) != 2 {
		t.Fatalf("got %d buckets, want 2", len(actuals))
	}
	if actuals[0].GroupLabel != "あおぞらカード|一括" || actuals[1].GroupLabel != "みずほカード|一括" {
		t.Errorf("order = [%s, %s], want kana order あおぞら before みずほ",
			actuals[0].GroupLabel, actuals[1].GroupLabel)
	}
}

func TestComputeActualsNullDateExcluded(t *testing.T) {
	store := newFakeStore()
	noDate := txn("t1", date(2026, time.March, 3), "VISA", "売上", "", 1, 999)
	noDate.TransactionDate.Valid = false
	store.txns = []*infraBQ.TransactionRow{noDate}
	svc := NewService(store)

	actuals, err := svc.ComputeActuals(context.Background(), date(2026, time.March, 1), date(2026, time.March, 15))
	if err != nil {
		t.Fatalf("ComputeActuals: %v", err)
	}
	if len(actuals) != 0 {
		t.Errorf("got %d buckets, want 0 (undated rows never match a range)", len(actuals))
	}
}
