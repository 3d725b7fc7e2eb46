package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"receiptly/internal/apperr"
	"receiptly/internal/dto"
	"receiptly/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MetadataStore is the persistence capability the lifecycle needs for
// metadata records. GetByFileHash returns (nil, nil) when the hash is new.
type MetadataStore interface {
	Create(ctx context.Context, m *models.ReceiptMetaData) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReceiptMetaData, error)
	GetByFileHash(ctx context.Context, hash string) (*models.ReceiptMetaData, error)
	Update(ctx context.Context, m *models.ReceiptMetaData) error
}

// ReceiptStore persists extracted receipts. GetByMetaID returns (nil, nil)
// when no receipt has been extracted yet.
type ReceiptStore interface {
	CreateWithLineItems(ctx context.Context, receipt *models.Receipt, items []*models.LineItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	GetByMetaID(ctx context.Context, metaID uuid.UUID) (*models.Receipt, error)
	ListAll(ctx context.Context) ([]*models.Receipt, error)
	DeleteByMetaID(ctx context.Context, metaID uuid.UUID) error
}

// VisionClient is the external classification/extraction capability.
type VisionClient interface {
	Classify(ctx context.Context, pages [][]byte) (*ClassificationResult, error)
	Extract(ctx context.Context, pages [][]byte) (*ExtractionResult, error)
}

// PageRenderer turns a stored file into ordered page images.
type PageRenderer interface {
	Render(filePath string) ([][]byte, error)
}

// ReceiptService drives the upload → validate → process lifecycle of a
// receipt record, including duplicate resolution on upload.
type ReceiptService struct {
	metaRepo    MetadataStore
	receiptRepo ReceiptStore
	vision      VisionClient
	raster      PageRenderer
	uploadDir   string
	logger      *zap.Logger
}

func NewReceiptService(
	metaRepo MetadataStore,
	receiptRepo ReceiptStore,
	vision VisionClient,
	raster PageRenderer,
	uploadDir string,
	logger *zap.Logger,
) *ReceiptService {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		logger.Warn("Failed to create upload directory", zap.Error(err))
	}

	return &ReceiptService{
		metaRepo:    metaRepo,
		receiptRepo: receiptRepo,
		vision:      vision,
		raster:      raster,
		uploadDir:   uploadDir,
		logger:      logger,
	}
}

// Upload stores the file bytes and creates a metadata record, resolving
// content-hash duplicates according to the requested strategy.
func (s *ReceiptService) Upload(ctx context.Context, fileName string, content []byte, strategy models.DuplicateStrategy) (*dto.ReceiptMetaResponse, error) {
	hash := HashBytes(content)

	existing, err := s.metaRepo.GetByFileHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up file hash: %w", err)
	}

	if existing != nil {
		switch strategy {
		case models.DuplicateUpdate:
			return s.updateExisting(ctx, existing, fileName, content)
		case models.DuplicateIgnore:
			// Two records sharing a hash are legal on this path only.
		default:
			return nil, duplicateConflict(existing)
		}
	}

	return s.createNew(ctx, fileName, content, hash)
}

func (s *ReceiptService) createNew(ctx context.Context, fileName string, content []byte, hash string) (*dto.ReceiptMetaResponse, error) {
	id := uuid.New()
	filePath := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", id, fileName))

	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	now := time.Now()
	meta := &models.ReceiptMetaData{
		ID:        id,
		FileName:  fileName,
		FilePath:  filePath,
		FileHash:  hash,
		Validity:  models.ValidityUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.metaRepo.Create(ctx, meta); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to create metadata record: %w", err)
	}

	s.logger.Info("Stored upload",
		zap.String("id", id.String()),
		zap.String("file_name", fileName),
		zap.String("file_hash", hash),
	)

	return dto.NewReceiptMetaResponse(meta), nil
}

// updateExisting replaces the stored bytes of a known record; id, hash,
// validity and processed state are preserved.
func (s *ReceiptService) updateExisting(ctx context.Context, existing *models.ReceiptMetaData, fileName string, content []byte) (*dto.ReceiptMetaResponse, error) {
	newPath := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", existing.ID, fileName))

	if err := os.WriteFile(newPath, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if existing.FilePath != "" && existing.FilePath != newPath {
		if err := os.Remove(existing.FilePath); err != nil {
			s.logger.Warn("Failed to remove replaced file",
				zap.String("path", existing.FilePath),
				zap.Error(err),
			)
		}
	}

	existing.FileName = fileName
	existing.FilePath = newPath
	existing.UpdatedAt = time.Now()

	if err := s.metaRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update metadata record: %w", err)
	}

	s.logger.Info("Replaced duplicate upload",
		zap.String("id", existing.ID.String()),
		zap.String("file_name", fileName),
	)

	return dto.NewReceiptMetaResponse(existing), nil
}

func duplicateConflict(existing *models.ReceiptMetaData) *apperr.Error {
	return apperr.Conflict("Duplicate file detected", map[string]any{
		"existing_receipt": map[string]any{
			"id":           existing.ID.String(),
			"file_name":    existing.FileName,
			"uploaded_at":  existing.CreatedAt.Format(time.RFC3339),
			"is_valid":     existing.Validity.IsValid(),
			"is_processed": existing.IsProcessed,
		},
		"hint": "Retry with duplicate_strategy=update to replace the stored file, or duplicate_strategy=ignore to keep both.",
	})
}

// Validate runs the classification capability over the stored file and
// records the outcome. Provider failures are surfaced unchanged and leave
// the record untouched. Re-validation is allowed and overwrites.
func (s *ReceiptService) Validate(ctx context.Context, id uuid.UUID) (*dto.ReceiptMetaResponse, error) {
	meta, err := s.metaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pages, err := s.raster.Render(meta.FilePath)
	if err != nil {
		return nil, err
	}

	result, err := s.vision.Classify(ctx, pages)
	if err != nil {
		return nil, err
	}

	if result.ReceiptOrNot == "yes" {
		meta.Validity = models.ValidityValid
		meta.InvalidReason = ""
	} else {
		meta.Validity = models.ValidityInvalid
		meta.InvalidReason = "Not a Receipt"
	}
	meta.UpdatedAt = time.Now()

	if err := s.metaRepo.Update(ctx, meta); err != nil {
		return nil, fmt.Errorf("failed to update metadata record: %w", err)
	}

	s.logger.Info("Classified upload",
		zap.String("id", id.String()),
		zap.String("validity", string(meta.Validity)),
	)

	return dto.NewReceiptMetaResponse(meta), nil
}

// Process runs extraction over a validated record and persists the resulting
// Receipt with its line items as one unit.
func (s *ReceiptService) Process(ctx context.Context, id uuid.UUID, strategy models.ProcessStrategy) (*dto.ReceiptResponse, error) {
	meta, err := s.metaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch meta.Validity {
	case models.ValidityValid:
	case models.ValidityInvalid:
		return nil, apperr.InvalidInput(fmt.Sprintf("receipt failed validation: %s", meta.InvalidReason))
	default:
		return nil, apperr.InvalidInput("receipt has not been validated yet")
	}

	if _, err := os.Stat(meta.FilePath); err != nil {
		return nil, apperr.NotFound("stored file not found")
	}

	existing, err := s.receiptRepo.GetByMetaID(ctx, meta.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing receipt: %w", err)
	}
	if existing != nil {
		switch strategy {
		case models.ProcessReturnExisting:
			return dto.NewReceiptResponse(existing), nil
		case models.ProcessReprocess:
			if err := s.receiptRepo.DeleteByMetaID(ctx, meta.ID); err != nil {
				return nil, fmt.Errorf("failed to delete existing receipt: %w", err)
			}
			// The record has no receipt again until extraction succeeds;
			// keep the flag in sync so a failed extraction leaves it honest.
			meta.IsProcessed = false
			meta.UpdatedAt = time.Now()
			if err := s.metaRepo.Update(ctx, meta); err != nil {
				return nil, fmt.Errorf("failed to update metadata record: %w", err)
			}
		default:
			return nil, apperr.Conflict("Receipt already processed", map[string]any{
				"existing_receipt": dto.NewReceiptResponse(existing),
				"hint":             "Retry with duplicate_strategy=return_existing or duplicate_strategy=reprocess.",
			})
		}
	}

	pages, err := s.raster.Render(meta.FilePath)
	if err != nil {
		return nil, err
	}

	result, err := s.vision.Extract(ctx, pages)
	if err != nil {
		return nil, err
	}
	if result.IsEmpty() {
		return nil, apperr.InvalidInput("no data extracted")
	}

	now := time.Now()
	receipt, items := mapExtraction(meta.ID, result, now)

	if err := s.receiptRepo.CreateWithLineItems(ctx, receipt, items); err != nil {
		return nil, fmt.Errorf("failed to persist receipt: %w", err)
	}

	meta.IsProcessed = true
	meta.UpdatedAt = now
	if err := s.metaRepo.Update(ctx, meta); err != nil {
		return nil, fmt.Errorf("failed to mark record processed: %w", err)
	}

	s.logger.Info("Processed receipt",
		zap.String("id", id.String()),
		zap.String("receipt_id", receipt.ID.String()),
		zap.Int("line_items", len(items)),
	)

	return dto.NewReceiptResponse(receipt), nil
}

// ListReceipts returns every extracted receipt with its line items.
func (s *ReceiptService) ListReceipts(ctx context.Context) ([]*dto.ReceiptResponse, error) {
	receipts, err := s.receiptRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.ReceiptResponse, len(receipts))
	for i, receipt := range receipts {
		responses[i] = dto.NewReceiptResponse(receipt)
	}
	return responses, nil
}

// GetReceipt returns one extracted receipt by its id.
func (s *ReceiptService) GetReceipt(ctx context.Context, id uuid.UUID) (*dto.ReceiptResponse, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewReceiptResponse(receipt), nil
}
