package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ktsuji/card-recon/internal/api/handlers"
	"github.com/ktsuji/card-recon/internal/api/middleware"
	"github.com/ktsuji/card-recon/internal/export/sheets"
	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
	"github.com/ktsuji/card-recon/internal/ingest"
	"github.com/ktsuji/card-recon/internal/jobs"
	"github.com/ktsuji/card-recon/internal/jobs/inmemory"
	"github.com/ktsuji/card-recon/internal/logger"
	"github.com/ktsuji/card-recon/internal/recon"
	"github.com/ktsuji/card-recon/internal/slipstore"
)

func main() {
	// Parse command-line flags
	var (
		port   = flag.String("port", "8080", "HTTP server port")
		bucket = flag.String("bucket", envOr("CARDRECON_BUCKET", ingest.DefaultBucket), "GCS bucket for slip uploads (or set CARDRECON_BUCKET env)")
		userID        = flag.String("user", ingest.DefaultUserID, "User id stamped on created rows")
		model         = flag.String("model", ingest.DefaultModelName, "Gemini model for slip OCR")
		spreadsheetID = flag.String("spreadsheet-id", os.Getenv("CARDRECON_SPREADSHEET_ID"), "Default spreadsheet for transaction export (or set CARDRECON_SPREADSHEET_ID env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - slip uploads will be disabled")
	}

	ctx := context.Background()

	repo, err := infraBQ.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	svc := recon.NewService(repo)
	storage := slipstore.NewService()
	parser := ingest.NewGeminiSlipParser(repo, *model)
	ingestDeps := ingest.Deps{
		Repo:    repo,
		Storage: storage,
		Parser:  parser,
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	// OCR jobs run off the request path; the upload handler only enqueues.
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		parseJob, ok := job.(*jobs.ParseSlipJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", parseJob.JobID).
			Str("slip_id", parseJob.SlipID).
			Str("gcs_uri", parseJob.GCSURI).
			Msg("Processing slip OCR job")

		if err := ingest.ParseSlip(ctx, ingestDeps, parseJob.SlipID); err != nil {
			log.Error().
				Err(err).
				Str("job_id", parseJob.JobID).
				Str("slip_id", parseJob.SlipID).
				Msg("Slip OCR failed")
			return err
		}

		log.Info().
			Str("job_id", parseJob.JobID).
			Str("slip_id", parseJob.SlipID).
			Msg("Slip OCR completed")

		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	periodsHandler := handlers.NewPeriodsHandler(svc, repo, *userID, log)
	entriesHandler := handlers.NewEntriesHandler(svc, log)
	transactionsHandler := handlers.NewTransactionsHandler(repo, *userID, log)
	groupsHandler := handlers.NewGroupsHandler(repo, *userID, log)
	slipsHandler := handlers.NewSlipsHandler(repo, storage, jobQueue, *bucket, *userID, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	exportHandler := handlers.NewExportHandler(repo, func(ctx context.Context) (sheets.API, error) {
		return sheets.NewGoogleSheets(ctx)
	}, *spreadsheetID, log)

	// Create router
	mux := http.NewServeMux()

	// Periods endpoints
	mux.HandleFunc("/api/periods", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			periodsHandler.ListPeriods(w, r)
		case http.MethodPost:
			periodsHandler.CreatePeriod(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/periods/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/periods/")
		periodID, action, _ := strings.Cut(rest, "/")
		if periodID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Period ID is required")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			periodsHandler.GetPeriod(w, r, periodID)
		case action == "" && r.Method == http.MethodPatch:
			periodsHandler.UpdateNote(w, r, periodID)
		case action == "" && r.Method == http.MethodDelete:
			periodsHandler.DeletePeriod(w, r, periodID)
		case action == "aggregate" && r.Method == http.MethodPost:
			periodsHandler.Aggregate(w, r, periodID)
		case action == "archive" && r.Method == http.MethodPost:
			periodsHandler.Archive(w, r, periodID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Entries endpoints
	mux.HandleFunc("/api/entries/", func(w http.ResponseWriter, r *http.Request) {
		entryID := strings.TrimPrefix(r.URL.Path, "/api/entries/")
		if entryID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Entry ID is required")
			return
		}
		if r.Method == http.MethodPatch {
			entriesHandler.UpdateEntry(w, r, entryID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		transactionID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if transactionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			transactionsHandler.UpdateTransaction(w, r, transactionID)
		case http.MethodDelete:
			transactionsHandler.DeleteTransaction(w, r, transactionID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Groups endpoints
	mux.HandleFunc("/api/groups", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			groupsHandler.ListGroups(w, r)
		case http.MethodPost:
			groupsHandler.CreateGroup(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/groups/", func(w http.ResponseWriter, r *http.Request) {
		groupID := strings.TrimPrefix(r.URL.Path, "/api/groups/")
		if groupID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Group ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			groupsHandler.UpdateGroup(w, r, groupID)
		case http.MethodDelete:
			groupsHandler.DeleteGroup(w, r, groupID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Slips endpoints
	mux.HandleFunc("/api/slips", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			slipsHandler.ListSlips(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/slips/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			slipsHandler.UploadSlip(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/slips/parse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			slipsHandler.ParseSlip(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/slips/", func(w http.ResponseWriter, r *http.Request) {
		slipID := strings.TrimPrefix(r.URL.Path, "/api/slips/")
		if slipID == "" || slipID == "upload" || slipID == "parse" {
			middleware.WriteError(w, http.StatusBadRequest, "Slip ID is required")
			return
		}
		if r.Method == http.MethodGet {
			slipsHandler.GetSlip(w, r, slipID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		if r.Method == http.MethodGet {
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Export endpoints
	mux.HandleFunc("/api/export/sheets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			exportHandler.ExportSheets(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
