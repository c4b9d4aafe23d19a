package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

func TestName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2 1/2 cups fresh basil leaves (packed), torn", "basil leaves"},
		{"1 lb boneless skinless chicken breasts", "chicken breasts"},
		{"3 cloves garlic, minced", "garlic"},
		{"2-3 tablespoons olive oil", "olive oil"},
		{"2 to 3 cups water", "water"},
		{"½ cup sugar", "sugar"},
		{"1 (14 oz) can diced tomatoes", "tomatoes"},
		{"1.5 kg potatoes", "potatoes"},
		{"2 cups of flour", "flour"},
		{"Salt and pepper to taste", "salt and pepper to taste"},
		{"3 large", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.raw))
		})
	}
}

func TestMatchTiers(t *testing.T) {
	ingredients := []string{
		"1 cup chicken stock",
		"1 cup shredded mozzarella cheese",
		"4 large eggs",
		"2 tbsp olive oil",
	}

	tests := []struct {
		name string
		step string
		want []domain.IngredientMatch
	}{
		{
			name: "literal name is high",
			step: "Whisk the eggs in a bowl.",
			want: []domain.IngredientMatch{{Index: 2, Relevance: domain.RelevanceHigh}},
		},
		{
			name: "shared significant token is medium",
			step: "Top with the cheese and bake.",
			want: []domain.IngredientMatch{{Index: 1, Relevance: domain.RelevanceMedium}},
		},
		{
			name: "substring of a long token is low",
			step: "Pour the stockpot contents over the chickens.",
			want: []domain.IngredientMatch{{Index: 0, Relevance: domain.RelevanceLow}},
		},
		{
			name: "no mention",
			step: "Preheat the oven to 200C.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.step, ingredients))
		})
	}
}

func TestMatchPartialTokenCredit(t *testing.T) {
	tests := []struct {
		name        string
		step        string
		ingredients []string
		want        []domain.IngredientMatch
	}{
		{
			// eggs~egg 0.5 + egg 1 = 1.5 over 4 step tokens.
			name:        "partial credit adds to an exact token",
			step:        "Whisk the eggs and egg whites",
			ingredients: []string{"2 egg yolk"},
			want:        []domain.IngredientMatch{{Index: 0, Relevance: domain.RelevanceMedium}},
		},
		{
			// only egg 1 over 4 step tokens.
			name:        "exact short token alone stays below the threshold",
			step:        "Whisk the egg with milk, sugar",
			ingredients: []string{"2 egg yolk"},
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.step, tt.ingredients))
		})
	}
}

func TestOverlap(t *testing.T) {
	assert.InDelta(t, 0.375, overlap([]string{"whisk", "eggs", "egg", "whites"}, []string{"egg", "yolk"}), 1e-9)
	assert.InDelta(t, 0.75, overlap([]string{"garlicky", "garlic"}, []string{"garlic"}), 1e-9)
	assert.Zero(t, overlap(nil, []string{"egg"}))
}

func TestMatchSortsByRelevanceStably(t *testing.T) {
	ingredients := []string{
		"1 cup chicken stock",         // low
		"1 cup grated parmesan cheese", // medium
		"2 tbsp butter",                // high
		"3 cloves garlic, minced",      // high
	}
	step := "Melt the butter, add garlic, then the stockpot contents, chickens and cheese."

	got := Match(step, ingredients)
	require.Len(t, got, 4)
	assert.Equal(t, []domain.IngredientMatch{
		{Index: 2, Relevance: domain.RelevanceHigh},
		{Index: 3, Relevance: domain.RelevanceHigh},
		{Index: 1, Relevance: domain.RelevanceMedium},
		{Index: 0, Relevance: domain.RelevanceLow},
	}, got)
}

func TestMatchEdgeCases(t *testing.T) {
	assert.Empty(t, Match("", []string{"2 eggs"}))
	assert.Empty(t, Match("   ", []string{"2 eggs"}))
	assert.Empty(t, Match("Crack the eggs", nil))
	// Lines that normalize to nothing are skipped.
	assert.Empty(t, Match("Use 3 large ones", []string{"3 large"}))
}

func TestMatchDeterministicAndInBounds(t *testing.T) {
	ingredients := []string{
		"200g spaghetti", "2 eggs", "100 g pancetta, diced", "50g pecorino",
		"freshly ground black pepper", "", "1 pinch salt",
	}
	steps := []string{
		"Boil the spaghetti in salted water.",
		"Fry the pancetta until crisp.",
		"Whisk eggs with pecorino and plenty of black pepper.",
		"Toss everything together off the heat.",
		"",
	}

	for _, step := range steps {
		first := Match(step, ingredients)
		second := Match(step, ingredients)
		assert.Equal(t, first, second)
		for _, m := range first {
			assert.GreaterOrEqual(t, m.Index, 0)
			assert.Less(t, m.Index, len(ingredients))
		}
	}
}
