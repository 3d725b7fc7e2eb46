package dto

import (
	"time"

	"receiptly/internal/models"
)

type ReceiptMetaResponse struct {
	ID            string `json:"id"`
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
	FileHash      string `json:"file_hash"`
	IsValid       bool   `json:"is_valid"`
	InvalidReason string `json:"invalid_reason"`
	IsProcessed   bool   `json:"is_processed"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type LineItemResponse struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Total       *float64 `json:"total"`
}

type ReceiptResponse struct {
	ID              string             `json:"id"`
	ReceiptMetaData string             `json:"receipt_meta_data"`
	MerchantName    *string            `json:"merchant_name"`
	TotalAmount     *float64           `json:"total_amount"`
	Currency        *string            `json:"currency"`
	PaymentMethod   *string            `json:"payment_method"`
	Category        *string            `json:"category"`
	PurchasedAt     *string            `json:"purchased_at"`
	LineItems       []LineItemResponse `json:"line_items"`
	CreatedAt       string             `json:"created_at"`
}

// NewReceiptMetaResponse projects the internal tri-state validity onto the
// boolean-plus-reason shape the external API keeps for compatibility.
func NewReceiptMetaResponse(m *models.ReceiptMetaData) *ReceiptMetaResponse {
	return &ReceiptMetaResponse{
		ID:            m.ID.String(),
		FileName:      m.FileName,
		FilePath:      m.FilePath,
		FileHash:      m.FileHash,
		IsValid:       m.Validity.IsValid(),
		InvalidReason: m.InvalidReason,
		IsProcessed:   m.IsProcessed,
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     m.UpdatedAt.Format(time.RFC3339),
	}
}

func NewReceiptResponse(r *models.Receipt) *ReceiptResponse {
	items := make([]LineItemResponse, len(r.LineItems))
	for i, li := range r.LineItems {
		items[i] = LineItemResponse{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Total:       li.Total,
		}
	}

	var purchasedAt *string
	if r.PurchasedAt != nil {
		s := r.PurchasedAt.Format(time.RFC3339)
		purchasedAt = &s
	}

	return &ReceiptResponse{
		ID:              r.ID.String(),
		ReceiptMetaData: r.ReceiptMetaID.String(),
		MerchantName:    r.MerchantName,
		TotalAmount:     r.TotalAmount,
		Currency:        r.Currency,
		PaymentMethod:   r.PaymentMethod,
		Category:        r.Category,
		PurchasedAt:     purchasedAt,
		LineItems:       items,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
}
