package httplookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/tempguard-api/internal/domain/model"
	"github.com/target/tempguard-api/internal/ports"
)

func TestProductLookup_ResultPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		resultPath string
		response   string
	}{
		{
			name:       "identity path on bare answer",
			resultPath: "",
			response:   `{"productName":"Coxa","productType":"ME","matchProbability":0.99}`,
		},
		{
			name:       "string answer in chat envelope",
			resultPath: "choices[0].message.content",
			response:   `{"choices":[{"message":{"content":"{\"productName\":\"Coxa\",\"productType\":\"ME\",\"matchProbability\":0.99}"}}]}`,
		},
		{
			name:       "object answer nested",
			resultPath: "data.answer",
			response:   `{"data":{"answer":{"productName":"Coxa","productType":"ME","matchProbability":0.99}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got lookupRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
				_ = json.NewDecoder(r.Body).Decode(&got)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			l, err := New(Config{
				URL:        srv.URL,
				Headers:    map[string]string{"Authorization": "Bearer k"},
				ResultPath: tt.resultPath,
				Client:     srv.Client(),
			})
			require.NoError(t, err)

			s, err := l.LookupProduct(context.Background(), "555")
			require.NoError(t, err)
			assert.Equal(t, &model.ProductSuggestion{ProductName: "Coxa", ProductType: model.MarketExternal, MatchProbability: 0.99}, s)
			assert.Equal(t, "555", got.ProductCode)
			assert.Equal(t, ports.ProductLookupPrompt, got.Prompt)
		})
	}
}

func TestProductLookup_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		response string
		path     string
	}{
		{name: "server error", status: http.StatusInternalServerError, response: `{}`},
		{name: "not json", status: http.StatusOK, response: `hello`},
		{name: "path selects nothing", status: http.StatusOK, response: `{}`, path: "missing"},
		{name: "answer without probability", status: http.StatusOK, response: `{"productName":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			l, err := New(Config{URL: srv.URL, ResultPath: tt.path, Client: srv.Client()})
			require.NoError(t, err)
			_, err = l.LookupProduct(context.Background(), "555")
			require.Error(t, err)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	_, err := New(Config{})
	require.Error(t, err)
	_, err = New(Config{URL: "http://example.com", ResultPath: "a[?"})
	require.Error(t, err)
}
