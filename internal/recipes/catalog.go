package recipes

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"vapex/internal/apperr"
	"vapex/models"
)

const (
	SortCreatedAt = "created_at"
	SortLikes     = "likes"
	SortViews     = "views"
	SortRating    = "rating"

	DefaultPerPage = 20
	MaxPerPage     = 100
)

// SearchQuery filters the public catalog.
type SearchQuery struct {
	Text       string
	Ingredient string
	Sort       string
}

// SearchPublic returns every public recipe whose name contains Text and, when
// Ingredient is set, that has a snapshot whose name contains it. Matching is
// case-insensitive. The rating sort currently orders by recency like the
// default.
func (s *Store) SearchPublic(ctx context.Context, q SearchQuery) ([]models.Recipe, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	query := s.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Preload("Ingredients", orderByID).
		Preload("User").
		Where("is_public = ?", true)

	if text := strings.TrimSpace(q.Text); text != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(text))
	}
	if ingredient := strings.TrimSpace(q.Ingredient); ingredient != "" {
		matching := s.db.Model(&models.RecipeIngredient{}).
			Select("recipe_id").
			Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(ingredient))
		query = query.Where("id IN (?)", matching)
	}

	var recipes []models.Recipe
	if err := query.Order(orderFor(q.Sort)).Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("search public recipes: %w", err)
	}
	return recipes, nil
}

// NormalizeSort maps an unknown or blank sort key onto the default.
func NormalizeSort(key string) string {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case SortLikes:
		return SortLikes
	case SortViews:
		return SortViews
	case SortRating:
		return SortRating
	default:
		return SortCreatedAt
	}
}

func orderFor(key string) string {
	switch NormalizeSort(key) {
	case SortLikes:
		return "likes desc, created_at desc, id desc"
	case SortViews:
		return "views desc, created_at desc, id desc"
	default:
		return "created_at desc, id desc"
	}
}

func containsPattern(value string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(strings.ToLower(value)) + "%"
}

// Page is one slice of a sorted result set.
type Page struct {
	Recipes []models.Recipe
	Total   int
	Page    int
	PerPage int
	HasNext bool
	HasPrev bool
}

// Paginate slices recipes into the 1-indexed page. Pages past the end are
// empty rather than an error.
func Paginate(recipes []models.Recipe, page, perPage int) (Page, error) {
	if page < 1 {
		return Page{}, apperr.Validation("page must be a positive integer")
	}
	if perPage < 1 || perPage > MaxPerPage {
		return Page{}, apperr.Validation("per_page must be between 1 and %d", MaxPerPage)
	}

	total := len(recipes)
	out := Page{Total: total, Page: page, PerPage: perPage, HasPrev: page > 1}
	// Compare before multiplying so huge page numbers cannot overflow.
	if page-1 > total/perPage {
		out.Recipes = recipes[total:]
		return out, nil
	}

	start := (page - 1) * perPage
	end := min(start+perPage, total)
	out.Recipes = recipes[start:end]
	out.HasNext = end < total
	return out, nil
}
