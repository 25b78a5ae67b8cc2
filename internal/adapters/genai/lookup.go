// Package genai implements product lookup on the Gemini API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/target/tempguard-api/internal/domain/model"
	"github.com/target/tempguard-api/internal/ports"
	"google.golang.org/genai"
)

var _ ports.ProductLookup = (*ProductLookup)(nil)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// Config configures the Gemini product lookup.
type Config struct {
	APIKey string
	Model  string

	// BaseURL and HTTPClient override the API endpoint; tests point them at a local server.
	BaseURL    string
	HTTPClient *http.Client
}

// ProductLookup asks Gemini to identify a product code using a JSON response schema.
type ProductLookup struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// answerSchema mirrors model.DecodeProductAnswer.
var answerSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"productName":      {Type: genai.TypeString},
		"productType":      {Type: genai.TypeString, Description: "MI for internal market, ME for external market, empty when unsure"},
		"matchProbability": {Type: genai.TypeNumber},
	},
	Required: []string{"productName", "productType", "matchProbability"},
}

// New creates a Gemini-backed product lookup.
func New(ctx context.Context, cfg Config) (*ProductLookup, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &ProductLookup{
		client: client,
		model:  cfg.Model,
		config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(ports.ProductLookupPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    answerSchema,
		},
	}, nil
}

// LookupProduct returns the model's raw suggestion for code.
func (l *ProductLookup) LookupProduct(ctx context.Context, code string) (*model.ProductSuggestion, error) {
	contents := []*genai.Content{
		genai.NewContentFromText("Product code: "+code, genai.RoleUser),
	}
	resp, err := l.client.Models.GenerateContent(ctx, l.model, contents, l.config)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, errors.New("GenAI returned no text")
	}
	return model.DecodeProductAnswer([]byte(text))
}

// Name returns the backend name.
func (l *ProductLookup) Name() string {
	return "genai:" + l.model
}
