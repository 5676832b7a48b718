// Package bigquery implements the persistence layer for the reconciliation
// service on top of Google BigQuery: row structs tagged for the cardrecon
// dataset, parameterized DML ops, and a client-holding Repository.
package bigquery

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
)

const (
	defaultProjectID = "cardrecon-prod"
	defaultDatasetID = "cardrecon"

	transactionsTable = "transactions"
	periodsTable      = "reconciliation_periods"
	entriesTable      = "reconciliation_entries"
	groupsTable       = "card_brand_groups"
	slipsTable        = "slips"
)

var (
	projectID = envOr("CARDRECON_PROJECT_ID", defaultProjectID)
	datasetID = envOr("CARDRECON_DATASET_ID", defaultDatasetID)
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// tableRef returns a fully qualified, backtick-quoted table reference.
func tableRef(table string) string {
	return "`" + projectID + "." + datasetID + "." + table + "`"
}

// runDML runs a parameterized DML query and waits for the job to finish.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
