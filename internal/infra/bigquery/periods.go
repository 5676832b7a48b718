package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Period lifecycle states. Transitions are monotonic: open -> reconciling ->
// archived. There is no path back out of archived short of deleting the
// period.
const (
	PeriodStatusOpen        = "open"
	PeriodStatusReconciling = "reconciling"
	PeriodStatusArchived    = "archived"
)

// Billing window kinds.
const (
	PeriodTypeFirstHalf  = "first_half"
	PeriodTypeSecondHalf = "second_half"
	PeriodTypeFullMonth  = "full_month"
)

// PeriodRow is one billing window in cardrecon.reconciliation_periods.
type PeriodRow struct {
	PeriodID string `bigquery:"period_id"` // REQUIRED
	UserID   string `bigquery:"user_id"`   // REQUIRED

	PeriodLabel string     `bigquery:"period_label"` // display string, e.g. 2026年3月前半分
	PeriodStart civil.Date `bigquery:"period_start"` // inclusive
	PeriodEnd   civil.Date `bigquery:"period_end"`   // inclusive
	PeriodType  string     `bigquery:"period_type"`  // first_half/second_half/full_month

	// Date the payee is contractually due to pay out. NULL for periods
	// migrated from before the due-date feature existed.
	ExpectedPaymentDate bigquery.NullDate `bigquery:"expected_payment_date"`

	Status      string                 `bigquery:"status"`
	ConfirmedAt bigquery.NullTimestamp `bigquery:"confirmed_at"` // set exactly once on archive
	Note        bigquery.NullString    `bigquery:"note"`

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}
