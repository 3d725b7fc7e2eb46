package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"receiptly/internal/apperr"
	"receiptly/pkg/config"

	"go.uber.org/zap"
)

// ClassificationResult is the payload the classification call returns.
// Anything other than an exact "yes" means the document is not a receipt.
type ClassificationResult struct {
	ReceiptOrNot string `json:"receipt_or_not"`
}

// ExtractedLineItem mirrors one entry of the model's line_items array.
type ExtractedLineItem struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Total       *float64 `json:"total"`
}

// ExtractionResult is the structured payload the extraction call returns.
// Every field is optional; an all-empty result means the model could not
// extract anything.
type ExtractionResult struct {
	MerchantName  *string             `json:"merchant_name"`
	TotalAmount   *float64            `json:"total_amount"`
	Currency      *string             `json:"currency"`
	PaymentMethod *string             `json:"payment_method"`
	Category      *string             `json:"category"`
	PurchasedAt   *string             `json:"purchased_at"`
	LineItems     []ExtractedLineItem `json:"line_items"`
}

// IsEmpty reports whether the model returned `{}` (or the equivalent).
func (r *ExtractionResult) IsEmpty() bool {
	return r.MerchantName == nil &&
		r.TotalAmount == nil &&
		r.Currency == nil &&
		r.PaymentMethod == nil &&
		r.Category == nil &&
		r.PurchasedAt == nil &&
		r.LineItems == nil
}

// VisionService talks to an OpenAI-compatible chat completions endpoint with
// a vision-capable model. Page images travel as base64 data URLs and the
// model is forced into JSON mode.
type VisionService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

func NewVisionService(cfg *config.LLMConfig, logger *zap.Logger) *VisionService {
	return &VisionService{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

// Classify asks the model whether the pages show a receipt.
func (s *VisionService) Classify(ctx context.Context, pages [][]byte) (*ClassificationResult, error) {
	raw, err := s.complete(ctx, classificationPrompt, pages)
	if err != nil {
		return nil, err
	}

	var result ClassificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperr.External("failed to parse classification response", err)
	}
	return &result, nil
}

// Extract asks the model for the structured receipt data.
func (s *VisionService) Extract(ctx context.Context, pages [][]byte) (*ExtractionResult, error) {
	raw, err := s.complete(ctx, extractionPrompt, pages)
	if err != nil {
		return nil, err
	}

	var result ExtractionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperr.External("failed to parse extraction response", err)
	}
	return &result, nil
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *VisionService) complete(ctx context.Context, prompt string, pages [][]byte) (json.RawMessage, error) {
	parts := make([]contentPart, 0, len(pages)+1)
	parts = append(parts, contentPart{Type: "text", Text: prompt})
	for _, page := range pages {
		encoded := base64.StdEncoding.EncodeToString(page)
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: "data:image/jpeg;base64," + encoded},
		})
	}

	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You're an expert in analyzing receipts and extracting data from them."},
			{Role: "user", Content: parts},
		},
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperr.External("vision request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.External("failed to read vision response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("Vision provider returned an error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, apperr.External(
			fmt.Sprintf("vision provider returned status %d", resp.StatusCode),
			fmt.Errorf("%s", bytes.TrimSpace(body)),
		)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, apperr.External("failed to decode vision response", err)
	}
	if len(chat.Choices) == 0 {
		return nil, apperr.External("vision response contained no choices", nil)
	}

	return json.RawMessage(chat.Choices[0].Message.Content), nil
}
