package ingest

// Default values for slip processing.
// These can be overridden via configuration or environment variables in the future.
const (
	// DefaultUserID is the default user identifier for slips and transactions.
	DefaultUserID = "ktsuji"

	// DefaultModelName is the default Gemini model used for slip OCR.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultBucket is the default GCS bucket holding slip uploads.
	DefaultBucket = "cardrecon-slips"
)
