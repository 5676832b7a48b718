package ingest

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
)

// mockRepo implements SlipRepository with overridable funcs.
type mockRepo struct {
	slips    map[string]*infraBQ.SlipRow
	inserted []*infraBQ.TransactionRow
	statuses []string

	insertTransactionsFunc func(ctx context.Context, rows []*infraBQ.TransactionRow) error
}

func newMockRepo(slips ...*infraBQ.SlipRow) *mockRepo {
	m := &mockRepo{slips: make(map[string]*infraBQ.SlipRow)}
	for _, s := range slips {
		m.slips[s.SlipID] = s
	}
	return m
}

func (m *mockRepo) InsertSlip(_ context.Context, row *infraBQ.SlipRow) error {
	m.slips[row.SlipID] = row
	return nil
}

func (m *mockRepo) GetSlip(_ context.Context, slipID string) (*infraBQ.SlipRow, error) {
	return m.slips[slipID], nil
}

func (m *mockRepo) UpdateSlipStatus(_ context.Context, slipID, status string, errorMessage bigquery.NullString) error {
	if s, ok := m.slips[slipID]; ok {
		s.ParseStatus = status
		s.ErrorMessage = errorMessage
	}
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockRepo) InsertTransactions(ctx context.Context, rows []*infraBQ.TransactionRow) error {
	if m.insertTransactionsFunc != nil {
		return m.insertTransactionsFunc(ctx, rows)
	}
	m.inserted = append(m.inserted, rows...)
	return nil
}

// mockStorage implements slipstore.StorageService.
type mockStorage struct {
	data     []byte
	fetchErr error
}

func (m *mockStorage) UploadSlip(_ context.Context, bucketName, objectName string, _ io.Reader) (string, error) {
	return "gs://" + bucketName + "/" + objectName, nil
}

func (m *mockStorage) FetchFromGCS(_ context.Context, _ string) ([]byte, error) {
	return m.data, m.fetchErr
}

func (m *mockStorage) ExtractFilenameFromGCSURI(uri string) string {
	return "slip.jpg"
}

// mockParser implements AIParser with an overridable func.
type mockParser struct {
	parseFunc func(ctx context.Context, data []byte, mimeType string) ([]SlipItem, error)
}

func (m *mockParser) ParseSlip(ctx context.Context, data []byte, mimeType string) ([]SlipItem, error) {
	return m.parseFunc(ctx, data, mimeType)
}

func testSlip() *infraBQ.SlipRow {
	return &infraBQ.SlipRow{
		SlipID:           "s1",
		UserID:           "u1",
		GCSURI:           "gs://cardrecon-slips/slips/2026/03/s1-slip.jpg",
		OriginalFilename: "slip.jpg",
		MimeType:         "image/jpeg",
		ParseStatus:      infraBQ.SlipStatusPending,
		UploadTS:         time.Now().UTC(),
	}
}

func TestParseSlipSuccess(t *testing.T) {
	repo := newMockRepo(testSlip())
	storage := &mockStorage{data: []byte("jpeg-bytes")}
	parser := &mockParser{
		parseFunc: func(_ context.Context, _ []byte, _ string) ([]SlipItem, error) {
			return []SlipItem{
				{
					TransactionDate:    "2026-03-05",
					SlipNumber:         "Ｎｏ１２３", // fullwidth, normalized on insert
					TransactionContent: "売上",
					PaymentType:        "1回払い",
					InstallmentCount:   0,
					CardBrand:          "ビザ",
					Amount:             12800,
					Confidence:         "high",
				},
			}, nil
		},
	}

	err := ParseSlip(context.Background(), Deps{Repo: repo, Storage: storage, Parser: parser}, "s1")
	if err != nil {
		t.Fatalf("ParseSlip: %v", err)
	}

	if got := repo.slips["s1"].ParseStatus; got != infraBQ.SlipStatusSuccess {
		t.Errorf("slip status = %s, want SUCCESS", got)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("got %d transactions, want 1", len(repo.inserted))
	}

	row := repo.inserted[0]
	if !row.TransactionDate.Valid || row.TransactionDate.Date.String() != "2026-03-05" {
		t.Errorf("date = %+v, want 2026-03-05", row.TransactionDate)
	}
	if !row.SlipNumber.Valid || row.SlipNumber.StringVal != "No123" {
		t.Errorf("slip number = %+v, want normalized No123", row.SlipNumber)
	}
	if !row.PaymentType.Valid || row.PaymentType.StringVal != "一括" {
		t.Errorf("payment type = %+v, want 一括", row.PaymentType)
	}
	if row.InstallmentCount != 1 {
		t.Errorf("installment count = %d, want default 1", row.InstallmentCount)
	}
	if !row.CardBrand.Valid || row.CardBrand.StringVal != "VISA" {
		t.Errorf("card brand = %+v, want canonical VISA", row.CardBrand)
	}
	if !row.SlipID.Valid || row.SlipID.StringVal != "s1" {
		t.Errorf("slip id = %+v, want s1", row.SlipID)
	}
}

func TestParseSlipModelFailureLeavesErrorRow(t *testing.T) {
	repo := newMockRepo(testSlip())
	storage := &mockStorage{data: []byte("jpeg-bytes")}
	parser := &mockParser{
		parseFunc: func(_ context.Context, _ []byte, _ string) ([]SlipItem, error) {
			return nil, errors.New("model timeout")
		},
	}

	err := ParseSlip(context.Background(), Deps{Repo: repo, Storage: storage, Parser: parser}, "s1")
	if err == nil {
		t.Fatal("ParseSlip succeeded, want error")
	}

	slip := repo.slips["s1"]
	if slip.ParseStatus != infraBQ.SlipStatusFailed {
		t.Errorf("slip status = %s, want FAILED", slip.ParseStatus)
	}
	if !slip.ErrorMessage.Valid || slip.ErrorMessage.StringVal == "" {
		t.Error("error message not recorded")
	}

	if len(repo.inserted) != 1 {
		t.Fatalf("got %d rows, want 1 low-confidence placeholder", len(repo.inserted))
	}
	ph := repo.inserted[0]
	if ph.Confidence != "low" {
		t.Errorf("placeholder confidence = %s, want low", ph.Confidence)
	}
	if ph.TransactionDate.Valid {
		t.Error("placeholder has a date, want NULL")
	}
}

func TestParseSlipFetchFailure(t *testing.T) {
	repo := newMockRepo(testSlip())
	storage := &mockStorage{fetchErr: errors.New("object not found")}
	parser := &mockParser{
		parseFunc: func(_ context.Context, _ []byte, _ string) ([]SlipItem, error) {
			t.Fatal("parser called despite fetch failure")
			return nil, nil
		},
	}

	err := ParseSlip(context.Background(), Deps{Repo: repo, Storage: storage, Parser: parser}, "s1")
	if err == nil {
		t.Fatal("ParseSlip succeeded, want error")
	}
	if repo.slips["s1"].ParseStatus != infraBQ.SlipStatusFailed {
		t.Errorf("slip status = %s, want FAILED", repo.slips["s1"].ParseStatus)
	}
	if len(repo.inserted) != 0 {
		t.Errorf("got %d rows, want 0 (nothing to record before bytes exist)", len(repo.inserted))
	}
}

func TestParseSlipUnknownSlip(t *testing.T) {
	repo := newMockRepo()
	err := ParseSlip(context.Background(), Deps{Repo: repo, Storage: &mockStorage{}, Parser: &mockParser{}}, "missing")
	if err == nil {
		t.Fatal("ParseSlip on missing slip succeeded, want error")
	}
}
