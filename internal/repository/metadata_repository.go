package repository

import (
	"context"
	"errors"

	"receiptly/internal/apperr"
	"receiptly/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var metaColumns = []string{"id", "file_name", "file_path", "file_hash", "validity", "invalid_reason", "is_processed", "created_at", "updated_at"}

type MetadataRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMetadataRepository(db *pgxpool.Pool, logger *zap.Logger) *MetadataRepository {
	return &MetadataRepository{
		db:     db,
		logger: logger,
	}
}

func (r *MetadataRepository) Create(ctx context.Context, m *models.ReceiptMetaData) error {
	query := squirrel.Insert("receipt_meta_data").
		Columns(metaColumns...).
		Values(m.ID, m.FileName, m.FilePath, m.FileHash, m.Validity, m.InvalidReason, m.IsProcessed, m.CreatedAt, m.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *MetadataRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReceiptMetaData, error) {
	query := squirrel.Select(metaColumns...).
		From("receipt_meta_data").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	m, err := r.scanOne(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("receipt metadata not found")
	}
	return m, err
}

// GetByFileHash returns (nil, nil) when no record carries the hash; a missing
// record is the normal case during duplicate detection, not an error.
func (r *MetadataRepository) GetByFileHash(ctx context.Context, hash string) (*models.ReceiptMetaData, error) {
	query := squirrel.Select(metaColumns...).
		From("receipt_meta_data").
		Where(squirrel.Eq{"file_hash": hash}).
		OrderBy("created_at ASC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	m, err := r.scanOne(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *MetadataRepository) Update(ctx context.Context, m *models.ReceiptMetaData) error {
	query := squirrel.Update("receipt_meta_data").
		Set("file_name", m.FileName).
		Set("file_path", m.FilePath).
		Set("validity", m.Validity).
		Set("invalid_reason", m.InvalidReason).
		Set("is_processed", m.IsProcessed).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{"id": m.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("receipt metadata not found")
	}
	return nil
}

func (r *MetadataRepository) scanOne(row pgx.Row) (*models.ReceiptMetaData, error) {
	var m models.ReceiptMetaData
	err := row.Scan(
		&m.ID, &m.FileName, &m.FilePath, &m.FileHash, &m.Validity, &m.InvalidReason, &m.IsProcessed, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
