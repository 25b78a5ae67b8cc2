//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ProductSuggestion is the best-effort enrichment returned for a product code.
type ProductSuggestion struct {
	ProductName      string     `json:"product_name"`
	ProductType      MarketType `json:"product_type"`
	MatchProbability float64    `json:"match_probability"`
}

// Normalize clamps the probability to [0,1], drops unknown product types and
// blanks the name and type when the probability is below minConfidence.
func (s *ProductSuggestion) Normalize(minConfidence float64) {
	p := s.MatchProbability
	switch {
	case math.IsNaN(p):
		p = 0
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	s.MatchProbability = p

	s.ProductName = strings.TrimSpace(s.ProductName)
	s.ProductType = MarketType(strings.ToUpper(strings.TrimSpace(string(s.ProductType))))
	if !s.ProductType.Valid() {
		s.ProductType = ""
	}
	if p < minConfidence {
		s.ProductName = ""
		s.ProductType = ""
	}
}

// NormalizeProductCode is the canonical form of a product code for caching and prompting.
func NormalizeProductCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// productAnswer is the JSON shape text model backends are asked to produce.
type productAnswer struct {
	ProductName      string   `json:"productName"`
	ProductType      string   `json:"productType"`
	MatchProbability *float64 `json:"matchProbability"`
}

// DecodeProductAnswer parses a model answer. Code fences around the JSON are tolerated;
// a missing matchProbability is an error.
func DecodeProductAnswer(raw []byte) (*ProductSuggestion, error) {
	text := strings.TrimSpace(string(raw))
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var ans productAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &ans); err != nil {
		return nil, fmt.Errorf("decode product answer: %w", err)
	}
	if ans.MatchProbability == nil {
		return nil, errors.New("decode product answer: missing matchProbability")
	}
	return &ProductSuggestion{
		ProductName:      ans.ProductName,
		ProductType:      MarketType(ans.ProductType),
		MatchProbability: *ans.MatchProbability,
	}, nil
}
