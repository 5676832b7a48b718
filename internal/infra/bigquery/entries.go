package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Manual reconciliation states on an entry, set by user edits. Distinct from
// the derived payment status, which is computed on read and never stored.
const (
	EntryStatusPending    = "pending"
	EntryStatusMatched    = "matched"
	EntryStatusMismatched = "mismatched"
	EntryStatusResolved   = "resolved"
)

// EntryRow is one (period, payee x payment category) reconciliation bucket in
// cardrecon.reconciliation_entries.
//
// Field naming follows the production schema: expected_amount holds the
// deposit actually received from the payee (user input after checking the
// bank), actual_amount holds the computed sales total. The balance formula
// depends on this exact assignment.
type EntryRow struct {
	EntryID  string `bigquery:"entry_id"`  // REQUIRED
	PeriodID string `bigquery:"period_id"` // REQUIRED
	UserID   string `bigquery:"user_id"`   // REQUIRED

	// GroupLabel is the composite bucket key "<payee>|<category>".
	GroupLabel string `bigquery:"group_label"`

	ExpectedAmount  int64 `bigquery:"expected_amount"`  // deposit received, user-entered
	ActualAmount    int64 `bigquery:"actual_amount"`    // computed sales total
	CarryoverAmount int64 `bigquery:"carryover_amount"` // >= 0, from the prior period
	FeeAmount       int64 `bigquery:"fee_amount"`       // deducted costs, user-entered

	Status string              `bigquery:"status"` // pending/matched/mismatched/resolved
	Note   bigquery.NullString `bigquery:"note"`

	// BrandBreakdown holds per-raw-brand signed subtotals as JSON, so a payee
	// group spanning several card brands shows its composition.
	BrandBreakdown bigquery.NullJSON `bigquery:"brand_breakdown"`

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}
