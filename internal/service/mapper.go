package service

import (
	"time"

	"receiptly/internal/models"

	"github.com/google/uuid"
)

// purchaseTimeLayouts covers the formats the extraction model is instructed
// to emit for purchased_at.
var purchaseTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// mapExtraction builds the Receipt and LineItem rows for one processing
// pass. Fields are copied verbatim; missing stays nil, and no currency or
// other defaulting happens here.
func mapExtraction(metaID uuid.UUID, result *ExtractionResult, now time.Time) (*models.Receipt, []*models.LineItem) {
	receipt := &models.Receipt{
		ID:            uuid.New(),
		ReceiptMetaID: metaID,
		MerchantName:  sanitizeOptional(result.MerchantName),
		TotalAmount:   result.TotalAmount,
		Currency:      sanitizeOptional(result.Currency),
		PaymentMethod: sanitizeOptional(result.PaymentMethod),
		Category:      sanitizeOptional(result.Category),
		PurchasedAt:   parsePurchaseTime(result.PurchasedAt),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items := make([]*models.LineItem, 0, len(result.LineItems))
	for _, entry := range result.LineItems {
		items = append(items, &models.LineItem{
			ID:          uuid.New(),
			ReceiptID:   receipt.ID,
			Description: sanitizeOptional(entry.Description),
			Quantity:    entry.Quantity,
			UnitPrice:   entry.UnitPrice,
			Total:       entry.Total,
		})
	}
	receipt.LineItems = items

	return receipt, items
}

func parsePurchaseTime(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	for _, layout := range purchaseTimeLayouts {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t
		}
	}
	return nil
}
