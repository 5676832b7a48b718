// Package slipstore stores uploaded merchant slip images in Google Cloud
// Storage and hands their bytes to the OCR pipeline.
package slipstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// StorageService is the slip image storage surface the ingest pipeline and
// API depend on. Satisfied by *Service; tests plug in fakes.
type StorageService interface {
	UploadSlip(ctx context.Context, bucketName, objectName string, r io.Reader) (string, error)
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURI(uri string) string
}

// Service is the GCS-backed slip store. It opens a client per call and
// assumes Application Default Credentials are configured.
type Service struct{}

// NewService creates a GCS slip store.
func NewService() *Service {
	return &Service{}
}

// UploadSlip streams a slip image into the bucket and returns the gs:// URI
// of the stored object.
func (s *Service) UploadSlip(ctx context.Context, bucketName, objectName string, r io.Reader) (string, error) {
	return UploadSlip(ctx, bucketName, objectName, r)
}

// FetchFromGCS delegates to the package-level FetchFromGCS.
func (s *Service) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI)
}

// ExtractFilenameFromGCSURI delegates to the package-level helper.
func (s *Service) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}

// UploadSlip uploads slip image bytes to a GCS bucket under the given object
// name and returns the resulting gs:// URI.
func UploadSlip(ctx context.Context, bucketName, objectName string, r io.Reader) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := client.Bucket(bucketName).Object(objectName)
	w := obj.NewWriter(ctx)

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy slip to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", bucketName, objectName), nil
}

// FetchFromGCS downloads the file bytes from the given GCS URI.
func FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	// gcsURI example: gs://my-bucket/slips/2026/03/slip.jpg
	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	bucketName := parts[0]
	objectPath := parts[1]

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: creating storage client: %w", err)
	}
	defer storageClient.Close()

	rc, err := storageClient.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading bytes: %w", err)
	}

	return data, nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/slips/file.jpg" → "file.jpg"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}

	return path.Base(parts[1])
}

// ObjectName builds the bucket path for a new slip upload: slips/<year>/<月>/
// <slipID>-<filename>, keeping uploads browsable by month.
func ObjectName(slipID, originalFilename string, uploadedAt time.Time) string {
	return fmt.Sprintf("slips/%04d/%02d/%s-%s",
		uploadedAt.Year(), int(uploadedAt.Month()), slipID, path.Base(originalFilename))
}
