// Package domain defines the core types and interfaces for hands-free
// cooking sessions. All other packages depend on domain; domain depends
// on nothing.
package domain

// Recipe is the slice of a recipe a cooking session needs: free-text
// instruction steps and free-text ingredient lines.
type Recipe struct {
	ID           string
	Title        string
	Description  string
	Servings     int
	Ingredients  []string // "2 cups all-purpose flour, sifted"
	Instructions []string
	Tags         []string
}

// RecipeSummary is a lightweight view of a recipe for listing.
type RecipeSummary struct {
	ID          string
	Title       string
	Description string
	Servings    int
	Steps       int
	Tags        []string
}

// Summary builds the listing view of a recipe.
func (r *Recipe) Summary() RecipeSummary {
	return RecipeSummary{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Servings:    r.Servings,
		Steps:       len(r.Instructions),
		Tags:        r.Tags,
	}
}
