package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const slipColumns = `
	slip_id,
	user_id,
	gcs_uri,
	original_filename,
	mime_type,
	parse_status,
	error_message,
	upload_ts,
	updated_ts
`

// InsertSlipWithClient records a freshly uploaded slip, normally in PENDING
// state.
func InsertSlipWithClient(ctx context.Context, client *bigquery.Client, row *SlipRow) error {
	q := client.Query(`
		INSERT ` + tableRef(slipsTable) + ` (
			slip_id, user_id, gcs_uri, original_filename,
			mime_type, parse_status, upload_ts
		)
		VALUES (
			@slip_id, @user_id, @gcs_uri, @original_filename,
			@mime_type, @parse_status, @upload_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "slip_id", Value: row.SlipID},
		{Name: "user_id", Value: row.UserID},
		{Name: "gcs_uri", Value: row.GCSURI},
		{Name: "original_filename", Value: row.OriginalFilename},
		{Name: "mime_type", Value: row.MimeType},
		{Name: "parse_status", Value: row.ParseStatus},
		{Name: "upload_ts", Value: row.UploadTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertSlip: %w", err)
	}
	return nil
}

// UpdateSlipStatusWithClient moves a slip through its parse lifecycle.
// errorMessage is only meaningful for FAILED and is cleared otherwise.
func UpdateSlipStatusWithClient(ctx context.Context, client *bigquery.Client, slipID, status string, errorMessage bigquery.NullString) error {
	q := client.Query(`
		UPDATE ` + tableRef(slipsTable) + `
		SET parse_status = @parse_status,
		    error_message = @error_message,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE slip_id = @slip_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "parse_status", Value: status},
		{Name: "error_message", Value: errorMessage},
		{Name: "slip_id", Value: slipID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateSlipStatus: %w", err)
	}
	return nil
}

// GetSlipWithClient fetches a single slip by id. Returns nil if no row
// matches.
func GetSlipWithClient(ctx context.Context, client *bigquery.Client, slipID string) (*SlipRow, error) {
	q := client.Query(`
		SELECT ` + slipColumns + `
		FROM ` + tableRef(slipsTable) + `
		WHERE slip_id = @slip_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "slip_id", Value: slipID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetSlip: query read: %w", err)
	}

	var r SlipRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetSlip: iter next: %w", err)
	}
	return &r, nil
}

// ListSlipsWithClient returns all slips, newest upload first.
func ListSlipsWithClient(ctx context.Context, client *bigquery.Client) ([]*SlipRow, error) {
	q := client.Query(`
		SELECT ` + slipColumns + `
		FROM ` + tableRef(slipsTable) + `
		ORDER BY upload_ts DESC
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSlips: query read: %w", err)
	}

	var rows []*SlipRow
	for {
		var r SlipRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSlips: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
