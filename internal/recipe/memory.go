// Package recipe provides recipe source implementations.
package recipe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*MemorySource)(nil)

// MemorySource holds recipes in memory. Safe for concurrent reads.
type MemorySource struct {
	mu      sync.RWMutex
	recipes map[string]*domain.Recipe
	log     *logger.Logger
}

// NewMemorySource creates a recipe source preloaded with built-in recipes.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := &MemorySource{
		recipes: make(map[string]*domain.Recipe),
		log:     log,
	}
	src.seed()
	return src
}

// List returns summaries of all available recipes sorted by title.
func (s *MemorySource) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.log.Debug("listing all recipes, count=%d", len(s.recipes))

	out := make([]domain.RecipeSummary, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Get returns a recipe by ID.
func (s *MemorySource) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		s.log.Debug("recipe not found: %s", id)
		return nil, domain.ErrNotFound
	}
	return r, nil
}

// Add stores a recipe, replacing any recipe with the same ID.
func (s *MemorySource) Add(r *domain.Recipe) error {
	if r.ID == "" {
		return fmt.Errorf("recipe %q has no id", r.Title)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[r.ID] = r
	s.log.Debug("recipe added: %s (%d steps)", r.ID, len(r.Instructions))
	return nil
}

// Search returns recipes whose title, description or tags contain the
// query string.
func (s *MemorySource) Search(ctx context.Context, query string) ([]domain.RecipeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	s.log.Debug("searching recipes for: %s", q)

	var out []domain.RecipeSummary
	for _, r := range s.recipes {
		if matches(r, q) {
			out = append(out, r.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func matches(r *domain.Recipe, query string) bool {
	if strings.Contains(strings.ToLower(r.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Description), query) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// seed populates the source with built-in recipes.
func (s *MemorySource) seed() {
	recipes := []*domain.Recipe{
		vegetableStirFry(),
		chickenAlfredo(),
		buttermilkPancakes(),
	}
	for _, r := range recipes {
		s.recipes[r.ID] = r
	}
	s.log.Debug("seeded %d recipes", len(recipes))
}

func chickenAlfredo() *domain.Recipe {
	return &domain.Recipe{
		ID:          "chicken-alfredo",
		Title:       "Chicken Alfredo",
		Description: "Creamy spaghetti alfredo with pan-seared chicken. Rich, indulgent, and not from a jar.",
		Servings:    2,
		Tags:        []string{"italian", "pasta", "chicken", "comfort"},
		Ingredients: []string{
			"250 g spaghetti",
			"2 medium chicken breasts",
			"1 cup creme fraiche",
			"1 cup grated gruyere cheese",
			"3 tablespoons butter",
			"4 cloves garlic, minced",
			"1 tablespoon olive oil",
			"salt, to taste",
			"black pepper, to taste",
		},
		Instructions: []string{
			"Bring a large pot of salted water to a boil for the spaghetti. It should taste like the sea.",
			"While the water heats, season the chicken with salt and pepper on both sides. Pound it to an even thickness.",
			"Heat the olive oil in a skillet over medium-high heat. Sear the chicken about 6 minutes per side until golden, then let it rest.",
			"Drop the spaghetti into the boiling water and cook until al dente. Keep a cup of pasta water before draining.",
			"In the same skillet, melt the butter over medium heat. Add the garlic and cook about 1 minute until fragrant.",
			"Stir in the creme fraiche and simmer for 3 minutes until it thickens slightly.",
			"Take the pan off the heat and stir in the gruyere until smooth. Loosen with pasta water if needed.",
			"Slice the chicken into strips, toss the spaghetti in the sauce and serve right away.",
		},
	}
}

func vegetableStirFry() *domain.Recipe {
	return &domain.Recipe{
		ID:          "vegetable-stir-fry",
		Title:       "Vegetable Stir Fry",
		Description: "Fast, crunchy, and customizable. The key is a screaming hot pan and not overcrowding it.",
		Servings:    2,
		Tags:        []string{"asian", "vegetables", "quick", "vegan", "healthy"},
		Ingredients: []string{
			"1 large bell pepper",
			"2 cups broccoli florets",
			"1 medium carrot",
			"1 cup snap peas",
			"3 cloves garlic",
			"1 tablespoon fresh ginger, grated",
			"2 tablespoons soy sauce",
			"1 tablespoon sesame oil",
			"2 tablespoons vegetable oil",
			"1 teaspoon cornstarch (optional)",
			"1 cup rice (optional)",
		},
		Instructions: []string{
			"If serving with rice, start the rice first.",
			"Slice the bell pepper into strips, cut the broccoli into small florets, julienne the carrot and trim the snap peas. Mince the garlic and grate the ginger.",
			"Mix the soy sauce, sesame oil and cornstarch with 2 tablespoons of water. Set aside.",
			"Heat a wok on high until it just starts to smoke. Add the vegetable oil and swirl to coat.",
			"Stir-fry the broccoli and carrot for 2 minutes, then add the bell pepper and snap peas for 2 more minutes.",
			"Push the vegetables aside, add the garlic and ginger to the center for 30 seconds, then toss everything together.",
			"Pour the sauce over everything and toss for 30 seconds until glossy.",
			"Serve immediately over the rice.",
		},
	}
}

func buttermilkPancakes() *domain.Recipe {
	return &domain.Recipe{
		ID:          "buttermilk-pancakes",
		Title:       "Buttermilk Pancakes",
		Description: "Tall, fluffy weekend pancakes. Lumpy batter is good batter.",
		Servings:    4,
		Tags:        []string{"breakfast", "vegetarian", "quick"},
		Ingredients: []string{
			"2 cups all-purpose flour",
			"2 tablespoons sugar",
			"1 1/2 teaspoons baking powder",
			"½ teaspoon baking soda",
			"½ teaspoon salt",
			"2 cups buttermilk",
			"2 large eggs",
			"3 tablespoons unsalted butter, melted",
			"maple syrup, for serving",
		},
		Instructions: []string{
			"Whisk the flour, sugar, baking powder, baking soda and salt in a large bowl.",
			"In another bowl whisk the buttermilk, eggs and melted butter.",
			"Pour the wet mixture into the dry ingredients and stir until just combined. Rest the batter for 5 minutes.",
			"Heat a griddle over medium heat and brush it with butter.",
			"Pour 1/4 cup of batter per pancake. Flip when bubbles form on top, about 2 minutes per side.",
			"Serve warm with maple syrup.",
		},
	}
}
