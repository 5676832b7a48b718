package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Transaction content values that negate the slip amount.
const (
	ContentSale   = "売上"
	ContentCancel = "取消"
	ContentReturn = "返品"
)

// TransactionRow is one OCR-extracted or manually entered card-sale event in
// cardrecon.transactions.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID string              `bigquery:"user_id"` // REQUIRED
	SlipID bigquery.NullString `bigquery:"slip_id"` // NULLABLE, source slip document

	TransactionDate    bigquery.NullDate   `bigquery:"transaction_date"`    // NULLABLE, OCR may fail to read it
	SlipNumber         bigquery.NullString `bigquery:"slip_number"`         // NULLABLE
	TransactionContent bigquery.NullString `bigquery:"transaction_content"` // NULLABLE: 売上/取消/返品/custom
	PaymentType        bigquery.NullString `bigquery:"payment_type"`        // NULLABLE free text
	InstallmentCount   int64               `bigquery:"installment_count"`   // REQUIRED, defaults to 1
	TerminalNumber     bigquery.NullString `bigquery:"terminal_number"`     // NULLABLE
	CardBrand          bigquery.NullString `bigquery:"card_brand"`          // NULLABLE free text
	Amount             int64               `bigquery:"amount"`              // REQUIRED, whole yen
	Clerk              bigquery.NullString `bigquery:"clerk"`               // NULLABLE
	Confidence         string              `bigquery:"confidence"`          // high/medium/low
	FileName           bigquery.NullString `bigquery:"file_name"`           // NULLABLE, originating upload

	// Once set, the transaction belongs to an archived period and is
	// immutable to edit/delete. Cleared only when that period is deleted.
	ArchivedPeriodID bigquery.NullString `bigquery:"archived_period_id"`

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// SignedAmount returns the amount with cancellations and returns negated.
func (r *TransactionRow) SignedAmount() int64 {
	if r.TransactionContent.Valid {
		switch r.TransactionContent.StringVal {
		case ContentCancel, ContentReturn:
			return -r.Amount
		}
	}
	return r.Amount
}
