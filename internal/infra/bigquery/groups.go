package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// GroupRow is one payee group in cardrecon.card_brand_groups: a display name
// and the set of raw card brand strings that settle through it.
type GroupRow struct {
	GroupID string `bigquery:"group_id"` // REQUIRED
	UserID  string `bigquery:"user_id"`  // REQUIRED

	GroupName string `bigquery:"group_name"` // payee display name, e.g. 三菱UFJニコス

	// Brands are matched against normalized card_brand values. A brand
	// appearing in no group aggregates under its own name.
	Brands []string `bigquery:"brands"` // REPEATED

	SortOrder int64 `bigquery:"sort_order"`

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}
