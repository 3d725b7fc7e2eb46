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

var receiptColumns = []string{"id", "receipt_meta_id", "merchant_name", "total_amount", "currency", "payment_method", "category", "purchased_at", "created_at", "updated_at"}

type ReceiptRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReceiptRepository(db *pgxpool.Pool, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// CreateWithLineItems writes the receipt and all its line items in one
// transaction; readers never observe a receipt without its items.
func (r *ReceiptRepository) CreateWithLineItems(ctx context.Context, receipt *models.Receipt, items []*models.LineItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := squirrel.Insert("receipts").
		Columns(receiptColumns...).
		Values(receipt.ID, receipt.ReceiptMetaID, receipt.MerchantName, receipt.TotalAmount, receipt.Currency, receipt.PaymentMethod, receipt.Category, receipt.PurchasedAt, receipt.CreatedAt, receipt.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, sql, args...); err != nil {
		return err
	}

	if len(items) > 0 {
		builder := squirrel.Insert("line_items").
			Columns("id", "receipt_id", "description", "quantity", "unit_price", "total").
			PlaceholderFormat(squirrel.Dollar)

		for _, item := range items {
			builder = builder.Values(item.ID, item.ReceiptID, item.Description, item.Quantity, item.UnitPrice, item.Total)
		}

		sql, args, err = builder.ToSql()
		if err != nil {
			return err
		}
		if _, err = tx.Exec(ctx, sql, args...); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ReceiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	receipt, err := r.getOne(ctx, squirrel.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperr.NotFound("receipt not found")
	}
	return receipt, nil
}

// GetByMetaID returns (nil, nil) when no receipt has been extracted for the
// metadata record yet.
func (r *ReceiptRepository) GetByMetaID(ctx context.Context, metaID uuid.UUID) (*models.Receipt, error) {
	return r.getOne(ctx, squirrel.Eq{"receipt_meta_id": metaID})
}

func (r *ReceiptRepository) getOne(ctx context.Context, pred squirrel.Eq) (*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(pred).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var receipt models.Receipt
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&receipt.ID, &receipt.ReceiptMetaID, &receipt.MerchantName, &receipt.TotalAmount, &receipt.Currency, &receipt.PaymentMethod, &receipt.Category, &receipt.PurchasedAt, &receipt.CreatedAt, &receipt.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := r.lineItemsFor(ctx, receipt.ID)
	if err != nil {
		return nil, err
	}
	receipt.LineItems = items

	return &receipt, nil
}

func (r *ReceiptRepository) ListAll(ctx context.Context) ([]*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		var receipt models.Receipt
		if err := rows.Scan(
			&receipt.ID, &receipt.ReceiptMetaID, &receipt.MerchantName, &receipt.TotalAmount, &receipt.Currency, &receipt.PaymentMethod, &receipt.Category, &receipt.PurchasedAt, &receipt.CreatedAt, &receipt.UpdatedAt,
		); err != nil {
			return nil, err
		}
		receipts = append(receipts, &receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, receipt := range receipts {
		items, err := r.lineItemsFor(ctx, receipt.ID)
		if err != nil {
			return nil, err
		}
		receipt.LineItems = items
	}

	return receipts, nil
}

// DeleteByMetaID removes the receipt extracted for a metadata record; line
// items go with it through the ON DELETE CASCADE on line_items.receipt_id.
func (r *ReceiptRepository) DeleteByMetaID(ctx context.Context, metaID uuid.UUID) error {
	query := squirrel.Delete("receipts").
		Where(squirrel.Eq{"receipt_meta_id": metaID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ReceiptRepository) lineItemsFor(ctx context.Context, receiptID uuid.UUID) ([]*models.LineItem, error) {
	query := squirrel.Select("id", "receipt_id", "description", "quantity", "unit_price", "total").
		From("line_items").
		Where(squirrel.Eq{"receipt_id": receiptID}).
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.Description, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
