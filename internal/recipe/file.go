package recipe

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

type fileRecipe struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Servings     int      `yaml:"servings"`
	Tags         []string `yaml:"tags"`
	Ingredients  []string `yaml:"ingredients"`
	Instructions []string `yaml:"instructions"`
}

type recipeFile struct {
	Recipes []fileRecipe `yaml:"recipes"`
}

// Decode reads a YAML recipe list:
//
//	recipes:
//	  - id: tomato-soup
//	    title: Tomato Soup
//	    ingredients: ["2 cans tomatoes", ...]
//	    instructions: ["Simmer the tomatoes.", ...]
func Decode(r io.Reader) ([]*domain.Recipe, error) {
	var f recipeFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding recipes: %w", err)
	}

	out := make([]*domain.Recipe, 0, len(f.Recipes))
	for i, fr := range f.Recipes {
		if fr.ID == "" {
			return nil, fmt.Errorf("recipe %d: missing id", i)
		}
		if len(fr.Instructions) == 0 {
			return nil, fmt.Errorf("recipe %s: %w", fr.ID, domain.ErrNoInstructions)
		}
		if fr.Servings <= 0 {
			fr.Servings = 1
		}
		out = append(out, &domain.Recipe{
			ID:           fr.ID,
			Title:        fr.Title,
			Description:  fr.Description,
			Servings:     fr.Servings,
			Tags:         fr.Tags,
			Ingredients:  fr.Ingredients,
			Instructions: fr.Instructions,
		})
	}
	return out, nil
}

// LoadFile adds every recipe in a YAML file to the source.
func (s *MemorySource) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening recipes: %w", err)
	}
	defer f.Close()

	recipes, err := Decode(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	for _, r := range recipes {
		if err := s.Add(r); err != nil {
			return 0, err
		}
	}
	s.log.Info("loaded %d recipes from %s", len(recipes), path)
	return len(recipes), nil
}
