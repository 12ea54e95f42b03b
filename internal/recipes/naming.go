package recipes

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"vapex/models"
)

const untitledRecipe = "Untitled Recipe"

// GenerateName derives a recipe name from its aroma snapshots.
func GenerateName(ingredients []models.RecipeIngredient) string {
	aromas := make([]string, 0, len(ingredients))
	for _, ingredient := range ingredients {
		if ingredient.Category != models.CategoryAroma {
			continue
		}
		if name := strings.TrimSpace(ingredient.Name); name != "" {
			aromas = append(aromas, name)
		}
	}

	switch len(aromas) {
	case 0:
		return untitledRecipe
	case 1:
		return fmt.Sprintf("%s Mix", aromas[0])
	case 2:
		return fmt.Sprintf("%s & %s", aromas[0], aromas[1])
	default:
		return fmt.Sprintf("%s & %d more", aromas[0], len(aromas)-1)
	}
}

// NextAvailableName returns base, or base suffixed with " (2)", " (3)", …
// whichever is not yet used by the user. excludeID skips the recipe being
// renamed. Uniqueness is best effort: two concurrent creations can still
// pick the same name.
func NextAvailableName(ctx context.Context, tx *gorm.DB, userID uint, base string, excludeID uint) (string, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = untitledRecipe
	}

	candidate := trimmed
	for suffix := 2; ; suffix++ {
		query := tx.WithContext(ctx).Model(&models.Recipe{}).Where("user_id = ? AND name = ?", userID, candidate)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return "", fmt.Errorf("check recipe name %q: %w", candidate, err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)", trimmed, suffix)
	}
}
