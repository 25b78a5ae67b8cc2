// Package httplookup implements product lookup against a generic HTTP text model endpoint.
package httplookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/tempguard-api/internal/domain/model"
	"github.com/target/tempguard-api/internal/ports"
)

var _ ports.ProductLookup = (*ProductLookup)(nil)

// maxResponseBytes bounds how much of the endpoint's response is read.
const maxResponseBytes = 1 << 20

// HTTPDoer abstracts http.Client for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the HTTP product lookup.
type Config struct {
	URL     string
	Headers map[string]string
	// ResultPath is a JMESPath expression selecting the model answer from the response body.
	// It may select a JSON string holding the answer or the answer object itself.
	ResultPath string
	Client     HTTPDoer
}

// ProductLookup posts {"productCode","prompt"} to an endpoint and extracts the answer with JMESPath.
type ProductLookup struct {
	url        string
	headers    map[string]string
	resultPath string
	client     HTTPDoer
}

type lookupRequest struct {
	ProductCode string `json:"productCode"`
	Prompt      string `json:"prompt"`
}

// New validates cfg and creates the lookup.
func New(cfg Config) (*ProductLookup, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("lookup URL is required")
	}
	path := strings.TrimSpace(cfg.ResultPath)
	if path == "" {
		path = "@"
	}
	if _, err := jmespath.Compile(path); err != nil {
		return nil, fmt.Errorf("invalid result path %q: %w", path, err)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ProductLookup{url: cfg.URL, headers: cfg.Headers, resultPath: path, client: client}, nil
}

// LookupProduct returns the endpoint's raw suggestion for code.
func (l *ProductLookup) LookupProduct(ctx context.Context, code string) (*model.ProductSuggestion, error) {
	body, err := json.Marshal(lookupRequest{ProductCode: code, Prompt: ports.ProductLookupPrompt})
	if err != nil {
		return nil, fmt.Errorf("marshal lookup request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range l.headers {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read lookup response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("lookup endpoint returned status %d", resp.StatusCode)
	}

	var doc any
	if unmarshalErr := json.Unmarshal(data, &doc); unmarshalErr != nil {
		return nil, fmt.Errorf("decode lookup response: %w", unmarshalErr)
	}
	selected, err := jmespath.Search(l.resultPath, doc)
	if err != nil {
		return nil, fmt.Errorf("evaluate result path: %w", err)
	}
	return decodeSelected(selected)
}

func decodeSelected(v any) (*model.ProductSuggestion, error) {
	switch t := v.(type) {
	case nil:
		return nil, errors.New("result path selected nothing")
	case string:
		return model.DecodeProductAnswer([]byte(t))
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("re-encode selected answer: %w", err)
		}
		return model.DecodeProductAnswer(raw)
	}
}
