// Package recon implements the reconciliation engine: aggregation of slip
// transactions into payee-and-category buckets, carryover from the prior
// billing window, the idempotent merge into stored entries, balance and
// payment status derivation, and the period lifecycle (create, aggregate,
// archive, delete).
package recon

import "strings"

// GroupLabelSeparator joins the payee group name and the payment category
// into the composite bucket key, e.g. "三菱UFJニコス|一括".
const GroupLabelSeparator = "|"

// Derived payment status of an entry. Computed from stored amounts on every
// read and never persisted. StatusWrittenOff is accepted from historical data
// but no rule produces it.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusReceived   = "received"
	PaymentStatusPartial    = "partial"
	PaymentStatusOverdue    = "overdue"
	PaymentStatusWrittenOff = "written_off"
)

// BrandAmount is one raw card brand's signed subtotal inside a bucket.
type BrandAmount struct {
	Brand  string `json:"brand"`
	Amount int64  `json:"amount"`
}

// GroupActual is the aggregated sales total of one payee-and-category bucket
// over a date range.
type GroupActual struct {
	// GroupLabel is "<payee>|<category>".
	GroupLabel  string        `json:"group_label"`
	TotalAmount int64         `json:"total_amount"`
	Brands      []BrandAmount `json:"brands"`
}

// MakeGroupLabel builds the composite bucket key.
func MakeGroupLabel(payee, category string) string {
	return payee + GroupLabelSeparator + category
}

// SplitGroupLabel breaks a composite key back into payee and category. A
// label without a separator is all payee with an empty category.
func SplitGroupLabel(label string) (payee, category string) {
	i := strings.LastIndex(label, GroupLabelSeparator)
	if i < 0 {
		return label, ""
	}
	return label[:i], label[i+len(GroupLabelSeparator):]
}
