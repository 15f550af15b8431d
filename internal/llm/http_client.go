package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/originpoint/backend/internal/config"
)

// HTTPProvider is the concrete Provider implementation: a thin JSON/HTTP
// client against the three configured LLM endpoints (internal/config.LLMConfig).
type HTTPProvider struct {
	chatEndpoint       string
	embeddingsEndpoint string
	safetyEndpoint     string
	apiKey             string
	client             *http.Client
}

func NewHTTPProvider(cfg config.LLMConfig) *HTTPProvider {
	return &HTTPProvider{
		chatEndpoint:       cfg.ChatEndpoint,
		embeddingsEndpoint: cfg.EmbeddingsEndpoint,
		safetyEndpoint:     cfg.SafetyEndpoint,
		apiKey:             cfg.APIKey,
		client:             &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
	}
}

type chatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type chatResponse struct {
	Content string `json:"content"`
}

func (p *HTTPProvider) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	var resp chatResponse
	if err := p.postJSON(ctx, p.chatEndpoint, chatRequest{Messages: messages}, &resp); err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	return resp.Content, nil
}

type extractionRequest struct {
	DocumentType string   `json:"document_type"`
	Pages        []string `json:"pages"`
}

type extractionResponse struct {
	Fields []ExtractionField `json:"fields"`
}

func (p *HTTPProvider) ExtractFields(ctx context.Context, documentType string, pages []string) ([]ExtractionField, error) {
	var resp extractionResponse
	if err := p.postJSON(ctx, p.chatEndpoint+"/extract", extractionRequest{DocumentType: documentType, Pages: pages}, &resp); err != nil {
		return nil, fmt.Errorf("llm: field extraction: %w", err)
	}
	return resp.Fields, nil
}

type safetyRequest struct {
	Text string `json:"text"`
}

type safetyResponse struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason"`
}

func (p *HTTPProvider) IsSafe(ctx context.Context, text string) (bool, string, error) {
	var resp safetyResponse
	if err := p.postJSON(ctx, p.safetyEndpoint, safetyRequest{Text: text}, &resp); err != nil {
		return false, "", fmt.Errorf("llm: safety check: %w", err)
	}
	return resp.Safe, resp.Reason, nil
}

type embeddingsRequest struct {
	Text string `json:"text"`
}

type embeddingsResponse struct {
	Vector []float32 `json:"vector"`
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embeddingsResponse
	if err := p.postJSON(ctx, p.embeddingsEndpoint, embeddingsRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("llm: embeddings: %w", err)
	}
	return resp.Vector, nil
}

func (p *HTTPProvider) postJSON(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("llm endpoint %s returned status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Provider = (*HTTPProvider)(nil)
