package domain

// Relevance is the confidence that a step uses an ingredient.
type Relevance int

const (
	RelevanceLow Relevance = iota + 1
	RelevanceMedium
	RelevanceHigh
)

// String returns a human-readable relevance tier.
func (r Relevance) String() string {
	switch r {
	case RelevanceHigh:
		return "high"
	case RelevanceMedium:
		return "medium"
	case RelevanceLow:
		return "low"
	default:
		return "none"
	}
}

// IngredientMatch links a step to one entry of the ingredient list.
type IngredientMatch struct {
	Index     int
	Relevance Relevance
}
