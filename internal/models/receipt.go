package models

import (
	"time"

	"github.com/google/uuid"
)

// Validity is the classification outcome for an uploaded file. A record
// starts out unknown and only becomes valid or invalid after the
// classification capability has seen it.
type Validity string

const (
	ValidityUnknown Validity = "unknown"
	ValidityValid   Validity = "valid"
	ValidityInvalid Validity = "invalid"
)

// IsValid projects the tri-state validity onto the boolean shape exposed
// by the external API.
func (v Validity) IsValid() bool {
	return v == ValidityValid
}

// ReceiptMetaData tracks one uploaded file: where its bytes live, its
// content fingerprint and how far it has progressed through the
// validate/process lifecycle.
type ReceiptMetaData struct {
	ID            uuid.UUID `db:"id"`
	FileName      string    `db:"file_name"`
	FilePath      string    `db:"file_path"`
	FileHash      string    `db:"file_hash"`
	Validity      Validity  `db:"validity"`
	InvalidReason string    `db:"invalid_reason"`
	IsProcessed   bool      `db:"is_processed"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Receipt holds the structured data extracted from a validated upload.
// At most one exists per ReceiptMetaData; reprocessing replaces it rather
// than updating it in place.
type Receipt struct {
	ID            uuid.UUID  `db:"id"`
	ReceiptMetaID uuid.UUID  `db:"receipt_meta_id"`
	MerchantName  *string    `db:"merchant_name"`
	TotalAmount   *float64   `db:"total_amount"`
	Currency      *string    `db:"currency"`
	PaymentMethod *string    `db:"payment_method"`
	Category      *string    `db:"category"`
	PurchasedAt   *time.Time `db:"purchased_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`

	LineItems []*LineItem
}

// LineItem is a single purchased item on a receipt. Line items live and
// die with their parent Receipt.
type LineItem struct {
	ID          uuid.UUID `db:"id"`
	ReceiptID   uuid.UUID `db:"receipt_id"`
	Description *string   `db:"description"`
	Quantity    *float64  `db:"quantity"`
	UnitPrice   *float64  `db:"unit_price"`
	Total       *float64  `db:"total"`
}
