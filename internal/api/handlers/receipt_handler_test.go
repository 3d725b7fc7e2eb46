package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"receiptly/internal/api"
	"receiptly/internal/api/handlers"
	"receiptly/internal/apperr"
	"receiptly/internal/dto"
	"receiptly/internal/models"
	"receiptly/internal/service"
	"receiptly/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memMetaStore struct {
	records []*models.ReceiptMetaData
}

func (f *memMetaStore) Create(_ context.Context, m *models.ReceiptMetaData) error {
	clone := *m
	f.records = append(f.records, &clone)
	return nil
}

func (f *memMetaStore) GetByID(_ context.Context, id uuid.UUID) (*models.ReceiptMetaData, error) {
	for _, r := range f.records {
		if r.ID == id {
			clone := *r
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("receipt metadata not found")
}

func (f *memMetaStore) GetByFileHash(_ context.Context, hash string) (*models.ReceiptMetaData, error) {
	for _, r := range f.records {
		if r.FileHash == hash {
			clone := *r
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *memMetaStore) Update(_ context.Context, m *models.ReceiptMetaData) error {
	for i, r := range f.records {
		if r.ID == m.ID {
			clone := *m
			f.records[i] = &clone
			return nil
		}
	}
	return apperr.NotFound("receipt metadata not found")
}

type memReceiptStore struct {
	receipts []*models.Receipt
}

func (f *memReceiptStore) CreateWithLineItems(_ context.Context, receipt *models.Receipt, items []*models.LineItem) error {
	clone := *receipt
	clone.LineItems = items
	f.receipts = append(f.receipts, &clone)
	return nil
}

func (f *memReceiptStore) GetByID(_ context.Context, id uuid.UUID) (*models.Receipt, error) {
	for _, r := range f.receipts {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apperr.NotFound("receipt not found")
}

func (f *memReceiptStore) GetByMetaID(_ context.Context, metaID uuid.UUID) (*models.Receipt, error) {
	for _, r := range f.receipts {
		if r.ReceiptMetaID == metaID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *memReceiptStore) ListAll(_ context.Context) ([]*models.Receipt, error) {
	return f.receipts, nil
}

func (f *memReceiptStore) DeleteByMetaID(_ context.Context, metaID uuid.UUID) error {
	kept := f.receipts[:0]
	for _, r := range f.receipts {
		if r.ReceiptMetaID != metaID {
			kept = append(kept, r)
		}
	}
	f.receipts = kept
	return nil
}

type scriptedVision struct {
	classification *service.ClassificationResult
	extraction     *service.ExtractionResult
}

func (f *scriptedVision) Classify(_ context.Context, _ [][]byte) (*service.ClassificationResult, error) {
	return f.classification, nil
}

func (f *scriptedVision) Extract(_ context.Context, _ [][]byte) (*service.ExtractionResult, error) {
	return f.extraction, nil
}

type stubRaster struct{}

func (stubRaster) Render(_ string) ([][]byte, error) {
	return [][]byte{{0xff, 0xd8}}, nil
}

func newTestApp(t *testing.T, vision *scriptedVision) *fiber.App {
	t.Helper()
	svc := service.NewReceiptService(&memMetaStore{}, &memReceiptStore{}, vision, stubRaster{}, t.TempDir(), zap.NewNop())
	handler := handlers.NewReceiptHandler(svc, zap.NewNop())
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return api.SetupRouter(handler, cfg, zap.NewNop())
}

func multipartUpload(t *testing.T, url, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write multipart content: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode response %s: %v", data, err)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	app := newTestApp(t, &scriptedVision{})

	resp, err := app.Test(multipartUpload(t, "/upload", "notes.txt", []byte("text")))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["error"] == "" {
		t.Fatal("response must name the accepted formats")
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	app := newTestApp(t, &scriptedVision{})

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRejectsUnrecognizedStrategy(t *testing.T) {
	app := newTestApp(t, &scriptedVision{})

	resp, err := app.Test(multipartUpload(t, "/upload?duplicate_strategy=overwrite", "receipt.jpg", []byte("bytes")))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadDuplicateConflict(t *testing.T) {
	app := newTestApp(t, &scriptedVision{})
	content := []byte("same bytes")

	resp, err := app.Test(multipartUpload(t, "/upload", "first.jpg", content))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first upload status = %d, want 201", resp.StatusCode)
	}
	var first dto.ReceiptMetaResponse
	decodeJSON(t, resp, &first)

	resp, err = app.Test(multipartUpload(t, "/upload", "second.jpg", content))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate upload status = %d, want 409", resp.StatusCode)
	}

	var conflict struct {
		Error           string `json:"error"`
		ExistingReceipt struct {
			ID string `json:"id"`
		} `json:"existing_receipt"`
		Hint string `json:"hint"`
	}
	decodeJSON(t, resp, &conflict)
	if conflict.ExistingReceipt.ID != first.ID {
		t.Fatalf("conflict names %s, want %s", conflict.ExistingReceipt.ID, first.ID)
	}
	if conflict.Hint == "" {
		t.Fatal("conflict must carry guidance about the other strategies")
	}
}

func TestGetReceiptUnknownID(t *testing.T) {
	app := newTestApp(t, &scriptedVision{})

	req := httptest.NewRequest(http.MethodGet, "/receipts/"+uuid.NewString(), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

// Walks the whole lifecycle through the HTTP surface: upload, classify,
// extract, then read back.
func TestUploadValidateProcessEndToEnd(t *testing.T) {
	merchant := "Acme"
	total := 12.50
	currency := "USD"
	widget := "Widget"

	vision := &scriptedVision{
		classification: &service.ClassificationResult{ReceiptOrNot: "yes"},
		extraction: &service.ExtractionResult{
			MerchantName: &merchant,
			TotalAmount:  &total,
			Currency:     &currency,
			LineItems: []service.ExtractedLineItem{
				{Description: &widget, Total: &total},
			},
		},
	}
	app := newTestApp(t, vision)

	// Upload
	resp, err := app.Test(multipartUpload(t, "/upload", "receipt.jpg", []byte("jpeg bytes")))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201", resp.StatusCode)
	}
	var meta dto.ReceiptMetaResponse
	decodeJSON(t, resp, &meta)
	if meta.IsValid || meta.IsProcessed {
		t.Fatalf("fresh upload must be unvalidated and unprocessed: %+v", meta)
	}

	// Validate
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/validate/"+meta.ID, nil))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate status = %d, want 200", resp.StatusCode)
	}
	decodeJSON(t, resp, &meta)
	if !meta.IsValid || meta.InvalidReason != "" {
		t.Fatalf("expected validated record, got %+v", meta)
	}

	// Process
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/process/"+meta.ID, nil))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("process status = %d, want 200", resp.StatusCode)
	}
	var receipt dto.ReceiptResponse
	decodeJSON(t, resp, &receipt)
	if receipt.MerchantName == nil || *receipt.MerchantName != "Acme" {
		t.Fatalf("merchant_name = %v", receipt.MerchantName)
	}
	if receipt.TotalAmount == nil || *receipt.TotalAmount != 12.50 {
		t.Fatalf("total_amount = %v", receipt.TotalAmount)
	}
	if len(receipt.LineItems) != 1 || *receipt.LineItems[0].Description != "Widget" {
		t.Fatalf("line_items = %+v", receipt.LineItems)
	}

	// Processing again returns the identical receipt.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/process/"+meta.ID, nil))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	var again dto.ReceiptResponse
	decodeJSON(t, resp, &again)
	if again.ID != receipt.ID {
		t.Fatalf("return_existing must keep the receipt id: %s vs %s", again.ID, receipt.ID)
	}

	// Read back through the listing endpoints.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/receipts", nil))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	var all []dto.ReceiptResponse
	decodeJSON(t, resp, &all)
	if len(all) != 1 || all[0].ID != receipt.ID {
		t.Fatalf("listing = %+v", all)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/receipts/"+receipt.ID, nil))
	if err != nil {
		t.Fatalf("app.Test error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail status = %d, want 200", resp.StatusCode)
	}
}
