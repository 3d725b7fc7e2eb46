package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"receiptly/internal/apperr"
	"receiptly/pkg/config"

	"go.uber.org/zap"
)

func newVisionAgainst(t *testing.T, handler http.HandlerFunc) (*VisionService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewVisionService(&config.LLMConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	return svc, server
}

func chatReply(content string) []byte {
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(reply)
	return data
}

func TestClassifySendsImagesAndParsesLabel(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}

	svc, _ := newVisionAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Write(chatReply(`{"receipt_or_not": "yes"}`))
	})

	result, err := svc.Classify(context.Background(), [][]byte{{0xff, 0xd8}, {0xff, 0xd8}})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.ReceiptOrNot != "yes" {
		t.Fatalf("ReceiptOrNot = %q", result.ReceiptOrNot)
	}

	if captured.Model != "test-model" {
		t.Fatalf("model = %q", captured.Model)
	}
	if captured.ResponseFormat.Type != "json_object" {
		t.Fatalf("response_format = %q", captured.ResponseFormat.Type)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("expected system + user message, got %d", len(captured.Messages))
	}
	// One text part plus one data URL per page.
	userContent := string(captured.Messages[1].Content)
	if got := strings.Count(userContent, "data:image/jpeg;base64,"); got != 2 {
		t.Fatalf("expected 2 image parts, found %d", got)
	}
}

func TestExtractParsesPayload(t *testing.T) {
	svc, _ := newVisionAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(chatReply(`{"merchant_name":"Acme","total_amount":12.5,"line_items":[{"description":"Widget","total":12.5}]}`))
	})

	result, err := svc.Extract(context.Background(), [][]byte{{0xff}})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.MerchantName == nil || *result.MerchantName != "Acme" {
		t.Fatalf("merchant_name = %v", result.MerchantName)
	}
	if result.IsEmpty() {
		t.Fatal("populated payload reported empty")
	}
}

func TestExtractEmptyObjectIsEmpty(t *testing.T) {
	svc, _ := newVisionAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(chatReply(`{}`))
	})

	result, err := svc.Extract(context.Background(), [][]byte{{0xff}})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !result.IsEmpty() {
		t.Fatalf("{} must report empty, got %+v", result)
	}
}

func TestProviderErrorSurfacesStatusAndBody(t *testing.T) {
	svc, _ := newVisionAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("model overloaded"))
	})

	_, err := svc.Classify(context.Background(), [][]byte{{0xff}})
	if !errors.Is(err, apperr.ErrExternal) {
		t.Fatalf("expected external error, got %v", err)
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("provider status and text must be preserved: %q", err.Error())
	}
}

func TestGarbledResponseIsExternalError(t *testing.T) {
	svc, _ := newVisionAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(chatReply(`not json at all`))
	})

	if _, err := svc.Classify(context.Background(), [][]byte{{0xff}}); !errors.Is(err, apperr.ErrExternal) {
		t.Fatalf("expected external error, got %v", err)
	}
}
