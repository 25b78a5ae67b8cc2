package ports

import (
	"context"

	"github.com/target/tempguard-api/internal/domain/model"
)

// ProductLookupPrompt is the fixed instruction sent to every text model backend.
const ProductLookupPrompt = "Given a product code, you will respond with the product name and product type " +
	"(MI for internal market or ME for external market) if you are at least 95% certain of the match. " +
	"If you are less than 95% certain, leave the product name and product type blank. " +
	"Always include matchProbability, a number between 0 and 1. Respond with JSON format."

// ProductLookup asks a text model backend to identify a product code.
// Implementations return the raw model answer; callers normalize it.
type ProductLookup interface {
	LookupProduct(ctx context.Context, code string) (*model.ProductSuggestion, error)
}
