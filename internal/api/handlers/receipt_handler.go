package handlers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"receiptly/internal/apperr"
	"receiptly/internal/models"
	"receiptly/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var acceptedFormats = []string{".png", ".jpg", ".jpeg", ".pdf"}

type ReceiptHandler struct {
	receiptService *service.ReceiptService
	logger         *zap.Logger
}

func NewReceiptHandler(receiptService *service.ReceiptService, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		logger:         logger,
	}
}

// Upload godoc
// @Summary Upload a receipt file
// @Description Upload a receipt image or PDF for later validation and extraction
// @Tags receipts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Receipt file (.png .jpg .jpeg .pdf)"
// @Param duplicate_strategy query string false "reject (default), update or ignore"
// @Success 201 {object} dto.ReceiptMetaResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]interface{}
// @Router /upload [post]
func (h *ReceiptHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperr.InvalidInput("attach a PDF or image file in the 'file' field")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !isAcceptedFormat(ext) {
		return apperr.InvalidInput(fmt.Sprintf("not a valid format - supported formats: %v", acceptedFormats))
	}

	strategy, err := models.ParseDuplicateStrategy(c.Query("duplicate_strategy"))
	if err != nil {
		return apperr.InvalidInput(err.Error())
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apperr.InvalidInput("failed to open uploaded file")
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return apperr.InvalidInput("failed to read uploaded file")
	}

	meta, err := h.receiptService.Upload(c.Context(), fileHeader.Filename, content, strategy)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(meta)
}

// Validate godoc
// @Summary Classify an upload as receipt or not
// @Description Run the vision classifier over the stored file and record the outcome
// @Tags receipts
// @Produce json
// @Param receipt_id path string true "Metadata record ID"
// @Success 200 {object} dto.ReceiptMetaResponse
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /validate/{receipt_id} [get]
func (h *ReceiptHandler) Validate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("receipt_id"))
	if err != nil {
		return apperr.InvalidInput("invalid receipt id")
	}

	meta, err := h.receiptService.Validate(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(meta)
}

// Process godoc
// @Summary Extract structured data from a validated upload
// @Description Run the vision extractor and persist the resulting receipt with its line items
// @Tags receipts
// @Produce json
// @Param receipt_id path string true "Metadata record ID"
// @Param duplicate_strategy query string false "return_existing (default) or reprocess"
// @Success 200 {object} dto.ReceiptResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]interface{}
// @Failure 502 {object} map[string]string
// @Router /process/{receipt_id} [get]
func (h *ReceiptHandler) Process(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("receipt_id"))
	if err != nil {
		return apperr.InvalidInput("invalid receipt id")
	}

	strategy := models.NormalizeProcessStrategy(c.Query("duplicate_strategy"))

	receipt, err := h.receiptService.Process(c.Context(), id, strategy)
	if err != nil {
		return err
	}

	return c.JSON(receipt)
}

// ListReceipts godoc
// @Summary List extracted receipts
// @Tags receipts
// @Produce json
// @Success 200 {array} dto.ReceiptResponse
// @Router /receipts [get]
func (h *ReceiptHandler) ListReceipts(c *fiber.Ctx) error {
	receipts, err := h.receiptService.ListReceipts(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(receipts)
}

// GetReceipt godoc
// @Summary Get one extracted receipt
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Success 200 {object} dto.ReceiptResponse
// @Failure 404 {object} map[string]string
// @Router /receipts/{id} [get]
func (h *ReceiptHandler) GetReceipt(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.InvalidInput("invalid receipt id")
	}

	receipt, err := h.receiptService.GetReceipt(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(receipt)
}

func isAcceptedFormat(ext string) bool {
	for _, format := range acceptedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
