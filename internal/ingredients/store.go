// Package ingredients manages each user's ingredient inventory.
package ingredients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"vapex/internal/apperr"
	applog "vapex/internal/log"
	"vapex/models"
)

const (
	// SuggestionMinLength is the shortest query that produces suggestions.
	SuggestionMinLength = 2
	// SuggestionLimit caps the number of suggestions returned.
	SuggestionLimit = 5
)

// Options tunes the store.
type Options struct {
	FreeIngredientLimit int
}

// Store persists inventory items through gorm.
type Store struct {
	db   *gorm.DB
	opts Options
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB, opts Options) *Store {
	return &Store{db: db, opts: opts}
}

// Input describes a new inventory item.
type Input struct {
	Category          string   `json:"category" validate:"required"`
	Brand             string   `json:"brand" validate:"max=100"`
	Name              string   `json:"name" validate:"required,max=200"`
	Price             *float64 `json:"price" validate:"omitempty,gte=0"`
	Quantity          *float64 `json:"quantity" validate:"omitempty,gte=0"`
	OptimalPercentage *float64 `json:"optimal_percentage" validate:"omitempty,gte=0,lte=100"`
	PGPercentage      float64  `json:"pg_percentage" validate:"gte=0,lte=100"`
	VGPercentage      float64  `json:"vg_percentage" validate:"gte=0,lte=100"`
	OtherPercentage   float64  `json:"other_percentage" validate:"gte=0,lte=100"`
	NicotineStrength  *float64 `json:"nicotine_strength" validate:"omitempty,gte=0"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Category          *string  `json:"category"`
	Brand             *string  `json:"brand" validate:"omitempty,max=100"`
	Name              *string  `json:"name" validate:"omitempty,max=200"`
	Price             *float64 `json:"price" validate:"omitempty,gte=0"`
	Quantity          *float64 `json:"quantity" validate:"omitempty,gte=0"`
	OptimalPercentage *float64 `json:"optimal_percentage" validate:"omitempty,gte=0,lte=100"`
	PGPercentage      *float64 `json:"pg_percentage" validate:"omitempty,gte=0,lte=100"`
	VGPercentage      *float64 `json:"vg_percentage" validate:"omitempty,gte=0,lte=100"`
	OtherPercentage   *float64 `json:"other_percentage" validate:"omitempty,gte=0,lte=100"`
	NicotineStrength  *float64 `json:"nicotine_strength" validate:"omitempty,gte=0"`
}

// Filter narrows List.
type Filter struct {
	Category string
	Search   string
	Brand    string
}

// Suggestion is an autocomplete entry.
type Suggestion struct {
	ID                uint     `json:"id"`
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	OptimalPercentage *float64 `json:"optimal_percentage"`
	IsOwn             bool     `json:"is_own"`
}

// List returns the user's items ordered by name.
func (s *Store) List(ctx context.Context, userID uint, filter Filter) ([]models.Ingredient, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	query, err := s.scoped(ctx, userID, filter.Category)
	if err != nil {
		return nil, err
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(search))
	}
	if brand := strings.TrimSpace(filter.Brand); brand != "" {
		query = query.Where(`LOWER(brand) LIKE ? ESCAPE '\'`, containsPattern(brand))
	}

	var items []models.Ingredient
	if err := query.Order("name asc, id asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return items, nil
}

// Create adds an item to the inventory, enforcing the free-tier quota.
func (s *Store) Create(ctx context.Context, userID uint, premium bool, in Input) (*models.Ingredient, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}
	category, ok := models.NormalizeCategory(in.Category)
	if !ok {
		return nil, apperr.Validation("invalid category %q", in.Category)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	item := models.Ingredient{
		UserID:            userID,
		Category:          category,
		Brand:             strings.TrimSpace(in.Brand),
		Name:              name,
		Price:             in.Price,
		Quantity:          in.Quantity,
		OptimalPercentage: in.OptimalPercentage,
		PGPercentage:      in.PGPercentage,
		VGPercentage:      in.VGPercentage,
		OtherPercentage:   in.OtherPercentage,
		NicotineStrength:  in.NicotineStrength,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !premium {
			var count int64
			if err := tx.Model(&models.Ingredient{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
				return fmt.Errorf("count ingredients: %w", err)
			}
			user := models.User{IsPremium: premium}
			if !user.CanAddIngredient(count, s.opts.FreeIngredientLimit) {
				return apperr.LimitExceeded("free accounts can store at most %d ingredients; upgrade to premium for unlimited ingredients", s.freeLimit())
			}
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("create ingredient: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	applog.Debug(ctx, "ingredient created", "id", item.ID, "user", userID, "category", item.Category)
	return &item, nil
}

// Update applies patch to one of the user's items.
func (s *Store) Update(ctx context.Context, userID, id uint, patch Patch) (*models.Ingredient, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	if err := apperr.ValidateStruct(patch); err != nil {
		return nil, err
	}

	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	columns := []string{"updated_at"}
	if patch.Category != nil {
		category, ok := models.NormalizeCategory(*patch.Category)
		if !ok {
			return nil, apperr.Validation("invalid category %q", *patch.Category)
		}
		item.Category = category
		columns = append(columns, "category")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		item.Name = name
		columns = append(columns, "name")
	}
	if patch.Brand != nil {
		item.Brand = strings.TrimSpace(*patch.Brand)
		columns = append(columns, "brand")
	}
	if patch.Price != nil {
		item.Price = patch.Price
		columns = append(columns, "price")
	}
	if patch.Quantity != nil {
		item.Quantity = patch.Quantity
		columns = append(columns, "quantity")
	}
	if patch.OptimalPercentage != nil {
		item.OptimalPercentage = patch.OptimalPercentage
		columns = append(columns, "optimal_percentage")
	}
	if patch.PGPercentage != nil {
		item.PGPercentage = *patch.PGPercentage
		columns = append(columns, "pg_percentage")
	}
	if patch.VGPercentage != nil {
		item.VGPercentage = *patch.VGPercentage
		columns = append(columns, "vg_percentage")
	}
	if patch.OtherPercentage != nil {
		item.OtherPercentage = *patch.OtherPercentage
		columns = append(columns, "other_percentage")
	}
	if patch.NicotineStrength != nil {
		item.NicotineStrength = patch.NicotineStrength
		columns = append(columns, "nicotine_strength")
	}

	if err := s.db.WithContext(ctx).Model(item).Select(columns).Updates(item).Error; err != nil {
		return nil, fmt.Errorf("update ingredient %d: %w", id, err)
	}
	return item, nil
}

// Delete removes one of the user's items. Recipe snapshots taken from it are
// unaffected.
func (s *Store) Delete(ctx context.Context, userID, id uint) error {
	if s == nil || s.db == nil {
		return gorm.ErrInvalidDB
	}
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Ingredient{})
	if result.Error != nil {
		return fmt.Errorf("delete ingredient %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("ingredient not found")
	}
	return nil
}

// Get loads one of the user's items.
func (s *Store) Get(ctx context.Context, userID, id uint) (*models.Ingredient, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var item models.Ingredient
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("ingredient not found")
		}
		return nil, fmt.Errorf("load ingredient %d: %w", id, err)
	}
	return &item, nil
}

// CountByUser returns how many items the user owns.
func (s *Store) CountByUser(ctx context.Context, userID uint) (int64, error) {
	if s == nil || s.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count ingredients: %w", err)
	}
	return count, nil
}

// Suggestions autocompletes query against the user's own items. Queries
// shorter than SuggestionMinLength yield nothing.
func (s *Store) Suggestions(ctx context.Context, userID uint, query, category string) ([]Suggestion, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	query = strings.TrimSpace(query)
	if len([]rune(query)) < SuggestionMinLength {
		return []Suggestion{}, nil
	}

	scoped, err := s.scoped(ctx, userID, category)
	if err != nil {
		return nil, err
	}

	var items []models.Ingredient
	if err := scoped.
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(query)).
		Order("name asc, id asc").
		Limit(SuggestionLimit).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("suggest ingredients: %w", err)
	}

	suggestions := make([]Suggestion, 0, len(items))
	for _, item := range items {
		suggestions = append(suggestions, Suggestion{
			ID:                item.ID,
			Name:              item.Name,
			Category:          item.Category,
			OptimalPercentage: item.OptimalPercentage,
			IsOwn:             true,
		})
	}
	return suggestions, nil
}

// FreeLimit reports the effective free-tier quota.
func (s *Store) FreeLimit() int {
	return s.freeLimit()
}

func (s *Store) freeLimit() int {
	if s == nil || s.opts.FreeIngredientLimit <= 0 {
		return models.FreeIngredientLimit
	}
	return s.opts.FreeIngredientLimit
}

func (s *Store) scoped(ctx context.Context, userID uint, category string) (*gorm.DB, error) {
	query := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("user_id = ?", userID)
	if strings.TrimSpace(category) != "" {
		normalized, ok := models.NormalizeCategory(category)
		if !ok {
			return nil, apperr.Validation("invalid category %q", category)
		}
		query = query.Where("category = ?", normalized)
	}
	return query, nil
}

func containsPattern(value string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(strings.ToLower(value)) + "%"
}
