package ingest

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/normalize"
)

// SlipItem is one merchant-copy receipt extracted by the model. JSON nulls
// land as zero values; missing installment counts are repaired during
// normalization.
type SlipItem struct {
	TransactionDate    string `json:"transaction_date"`
	SlipNumber         string `json:"slip_number"`
	TransactionContent string `json:"transaction_content"`
	PaymentType        string `json:"payment_type"`
	InstallmentCount   int64  `json:"installment_count"`
	TerminalNumber     string `json:"terminal_number"`
	CardBrand          string `json:"card_brand"`
	Amount             int64  `json:"amount"`
	Clerk              string `json:"clerk"`
	Confidence         string `json:"confidence"`
}

// normalizeItem cleans up the OCR-extracted fields: fullwidth/halfwidth
// unification on free text, canonical card brand and payment type, and the
// installment count default of 1.
func normalizeItem(item SlipItem) SlipItem {
	item.TransactionContent = normalize.Text(item.TransactionContent)
	item.TerminalNumber = normalize.Text(item.TerminalNumber)
	item.SlipNumber = normalize.Text(item.SlipNumber)
	item.Clerk = normalize.Text(item.Clerk)
	item.CardBrand = normalize.CardBrand(item.CardBrand)
	item.PaymentType = normalize.PaymentType(item.PaymentType)
	if item.InstallmentCount <= 0 {
		item.InstallmentCount = 1
	}
	if item.Confidence == "" {
		item.Confidence = "low"
	}
	return item
}

// toTransactionRow maps a normalized slip item onto the transactions schema.
// An unparseable date stays NULL; such rows never match a billing window and
// surface in the UI for manual correction.
func toTransactionRow(item SlipItem, slip *infraBQ.SlipRow, fileName string) *infraBQ.TransactionRow {
	row := &infraBQ.TransactionRow{
		TransactionID:    uuid.New().String(),
		UserID:           slip.UserID,
		SlipID:           bigquery.NullString{StringVal: slip.SlipID, Valid: true},
		InstallmentCount: item.InstallmentCount,
		Amount:           item.Amount,
		Confidence:       item.Confidence,
		CreatedTS:        time.Now().UTC(),
	}
	if fileName != "" {
		row.FileName = bigquery.NullString{StringVal: fileName, Valid: true}
	}
	if d, err := civil.ParseDate(item.TransactionDate); err == nil {
		row.TransactionDate = bigquery.NullDate{Date: d, Valid: true}
	}
	row.SlipNumber = nullString(item.SlipNumber)
	row.TransactionContent = nullString(item.TransactionContent)
	row.PaymentType = nullString(item.PaymentType)
	row.TerminalNumber = nullString(item.TerminalNumber)
	row.CardBrand = nullString(item.CardBrand)
	row.Clerk = nullString(item.Clerk)
	return row
}

// errorRow records an unreadable slip as a low-confidence placeholder so the
// upload is still visible in the transaction list.
func errorRow(slip *infraBQ.SlipRow, fileName string) *infraBQ.TransactionRow {
	row := &infraBQ.TransactionRow{
		TransactionID:    uuid.New().String(),
		UserID:           slip.UserID,
		SlipID:           bigquery.NullString{StringVal: slip.SlipID, Valid: true},
		InstallmentCount: 1,
		Confidence:       "low",
		CreatedTS:        time.Now().UTC(),
	}
	if fileName != "" {
		row.FileName = bigquery.NullString{StringVal: fileName, Valid: true}
	}
	return row
}

func nullString(s string) bigquery.NullString {
	if s == "" {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: s, Valid: true}
}
