package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/ingest"
	"github.com/ktsuji/card-recon/internal/logger"
	"github.com/ktsuji/card-recon/internal/slipstore"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	gcsURI := flag.String("gcs-uri", "", "GCS URI of the slip image (e.g. gs://bucket/slips/2026/03/slip.jpg)")
	mimeType := flag.String("mime-type", "image/jpeg", "MIME type of the slip (image/jpeg, image/png or application/pdf)")
	model := flag.String("model", ingest.DefaultModelName, "Gemini model for slip OCR")
	flag.Parse()

	if *gcsURI == "" {
		log.Fatal().Msg("Error: --gcs-uri is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("gcs_uri", *gcsURI).Str("mime_type", *mimeType).Msg("Starting slip ingestion")

	repo, err := infraBQ.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	deps := ingest.Deps{
		Repo:    repo,
		Storage: slipstore.NewService(),
		Parser:  ingest.NewGeminiSlipParser(repo, *model),
	}

	slipID, err := ingest.IngestSlipFromGCS(ctx, deps, *gcsURI, *mimeType)
	if err != nil {
		log.Fatal().Err(err).Str("slip_id", slipID).Msg("Ingestion failed")
	}

	fmt.Printf("Ingestion completed successfully. Slip ID: %s\n", slipID)
}
