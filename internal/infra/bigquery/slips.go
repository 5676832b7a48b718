package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Parse lifecycle of an uploaded slip image.
const (
	SlipStatusPending = "PENDING"
	SlipStatusRunning = "RUNNING"
	SlipStatusSuccess = "SUCCESS"
	SlipStatusFailed  = "FAILED"
)

// SlipRow is one uploaded merchant-copy slip image in cardrecon.slips. The
// image bytes live in GCS; this row tracks the upload and its OCR outcome.
type SlipRow struct {
	SlipID string `bigquery:"slip_id"` // REQUIRED
	UserID string `bigquery:"user_id"` // REQUIRED

	GCSURI           string `bigquery:"gcs_uri"` // gs://bucket/object
	OriginalFilename string `bigquery:"original_filename"`
	MimeType         string `bigquery:"mime_type"`

	ParseStatus  string              `bigquery:"parse_status"` // PENDING/RUNNING/SUCCESS/FAILED
	ErrorMessage bigquery.NullString `bigquery:"error_message"`

	UploadTS  time.Time              `bigquery:"upload_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}
