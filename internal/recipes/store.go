// Package recipes owns the recipe aggregate: ingredient snapshots, the cached
// mixing result, naming and the public catalog.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vapex/internal/apperr"
	applog "vapex/internal/log"
	"vapex/internal/mixing"
	"vapex/models"
)

const maxNameLength = 200

// Options tunes the store.
type Options struct {
	FreeRecipeLimit int
}

// Store persists recipes through gorm.
type Store struct {
	db   *gorm.DB
	opts Options
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB, opts Options) *Store {
	return &Store{db: db, opts: opts}
}

// IngredientInput is a component as submitted by a client. When
// IngredientID is set, blank fields are copied from the user's inventory.
type IngredientInput struct {
	Category     string   `json:"category"`
	Name         string   `json:"name"`
	Percentage   *float64 `json:"percentage"`
	IngredientID *uint    `json:"ingredient_id"`
}

// CreateInput carries the fields of a new recipe.
type CreateInput struct {
	Name                   string
	Description            string
	IsPublic               *bool
	TargetVolume           float64
	BaseNicotineStrength   float64
	TargetNicotineStrength float64
	Ingredients            []IngredientInput
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name                   *string
	Description            *string
	IsPublic               *bool
	TargetVolume           *float64
	BaseNicotineStrength   *float64
	TargetNicotineStrength *float64
	Ingredients            *[]IngredientInput
}

// Owner identifies the authenticated caller.
type Owner struct {
	UserID    uint
	IsPremium bool
}

// Create stores a new recipe with its snapshots and computed amounts in one
// transaction.
func (s *Store) Create(ctx context.Context, owner Owner, in CreateInput) (*models.Recipe, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	if len(in.Ingredients) == 0 {
		return nil, apperr.Validation("at least one ingredient is required")
	}

	var recipe models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkLimit(ctx, tx, owner); err != nil {
			return err
		}

		snapshots, err := resolveSnapshots(ctx, tx, owner.UserID, in.Ingredients)
		if err != nil {
			return err
		}

		recipe = models.Recipe{
			UserID:                 owner.UserID,
			Description:            strings.TrimSpace(in.Description),
			IsPublic:               visibility(owner, in.IsPublic, true),
			TargetVolume:           in.TargetVolume,
			BaseNicotineStrength:   in.BaseNicotineStrength,
			TargetNicotineStrength: in.TargetNicotineStrength,
			Ingredients:            snapshots,
		}
		if err := recompute(&recipe); err != nil {
			return err
		}

		base := strings.TrimSpace(in.Name)
		if base == "" {
			base = GenerateName(snapshots)
		}
		if len(base) > maxNameLength {
			return apperr.Validation("name must be at most %d characters", maxNameLength)
		}
		recipe.Name, err = NextAvailableName(ctx, tx, owner.UserID, base, 0)
		if err != nil {
			return err
		}

		if err := tx.Create(&recipe).Error; err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	applog.Debug(ctx, "recipe created", "id", recipe.ID, "user", owner.UserID, "name", recipe.Name)
	return s.Get(ctx, owner.UserID, recipe.ID)
}

// Update applies in to a recipe owned by the caller. The ingredient list is
// replaced in place and the cached amounts are recomputed whenever a mixing
// input changes.
func (s *Store) Update(ctx context.Context, owner Owner, id uint, in UpdateInput) (*models.Recipe, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := loadOwned(ctx, tx, owner.UserID, id)
		if err != nil {
			return err
		}

		columns := []string{"updated_at"}
		remix := false

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Validation("name must not be empty")
			}
			if len(name) > maxNameLength {
				return apperr.Validation("name must be at most %d characters", maxNameLength)
			}
			if name != recipe.Name {
				if recipe.Name, err = NextAvailableName(ctx, tx, owner.UserID, name, recipe.ID); err != nil {
					return err
				}
				columns = append(columns, "name")
			}
		}
		if in.Description != nil {
			recipe.Description = strings.TrimSpace(*in.Description)
			columns = append(columns, "description")
		}
		if in.IsPublic != nil && owner.IsPremium {
			recipe.IsPublic = *in.IsPublic
			columns = append(columns, "is_public")
		}
		if in.TargetVolume != nil {
			recipe.TargetVolume = *in.TargetVolume
			columns = append(columns, "target_volume")
			remix = true
		}
		if in.BaseNicotineStrength != nil {
			recipe.BaseNicotineStrength = *in.BaseNicotineStrength
			columns = append(columns, "base_nicotine_strength")
			remix = true
		}
		if in.TargetNicotineStrength != nil {
			recipe.TargetNicotineStrength = *in.TargetNicotineStrength
			columns = append(columns, "target_nicotine_strength")
			remix = true
		}
		if in.Ingredients != nil {
			if len(*in.Ingredients) == 0 {
				return apperr.Validation("at least one ingredient is required")
			}
			snapshots, err := resolveSnapshots(ctx, tx, owner.UserID, *in.Ingredients)
			if err != nil {
				return err
			}
			recipe.Ingredients = snapshots
			remix = true
		}

		if remix {
			if err := recompute(recipe); err != nil {
				return err
			}
			columns = append(columns, "calculated_amounts")
		}

		if err := tx.Model(recipe).Select(columns).Omit(clause.Associations).Updates(recipe).Error; err != nil {
			return fmt.Errorf("update recipe %d: %w", recipe.ID, err)
		}

		if in.Ingredients != nil {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return fmt.Errorf("clear recipe ingredients: %w", err)
			}
			for i := range recipe.Ingredients {
				recipe.Ingredients[i].ID = 0
				recipe.Ingredients[i].RecipeID = recipe.ID
			}
			if err := tx.Create(&recipe.Ingredients).Error; err != nil {
				return fmt.Errorf("store recipe ingredients: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, owner.UserID, id)
}

// Delete removes a recipe owned by the caller together with its snapshots and
// ledger entries.
func (s *Store) Delete(ctx context.Context, userID, id uint) error {
	if s == nil || s.db == nil {
		return gorm.ErrInvalidDB
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := loadOwned(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("delete recipe votes: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("delete recipe ingredients: %w", err)
		}
		if err := tx.Delete(&models.Recipe{}, recipe.ID).Error; err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		applog.Debug(ctx, "recipe deleted", "id", recipe.ID, "user", userID)
		return nil
	})
}

// Get loads a recipe visible to viewerID: public recipes for everyone,
// private ones for their owner only. A zero viewerID is anonymous.
func (s *Store) Get(ctx context.Context, viewerID, id uint) (*models.Recipe, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Ingredients", orderByID).
		Preload("User").
		First(&recipe, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("load recipe %d: %w", id, err)
	}
	if !recipe.IsPublic && recipe.UserID != viewerID {
		return nil, apperr.AccessDenied("access denied")
	}
	return &recipe, nil
}

// ListByUser returns the user's recipes, newest first.
func (s *Store) ListByUser(ctx context.Context, userID uint) ([]models.Recipe, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).
		Preload("Ingredients", orderByID).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// Duplicate copies a recipe the caller can see into the caller's collection.
// Without an explicit name the copy is called "<name> (Copy)".
func (s *Store) Duplicate(ctx context.Context, owner Owner, id uint, name string, isPublic *bool) (*models.Recipe, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var clone models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkLimit(ctx, tx, owner); err != nil {
			return err
		}

		var source models.Recipe
		if err := tx.Preload("Ingredients", orderByID).First(&source, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("recipe not found")
			}
			return fmt.Errorf("load recipe %d: %w", id, err)
		}
		if !source.IsPublic && source.UserID != owner.UserID {
			return apperr.AccessDenied("access denied")
		}

		base := strings.TrimSpace(name)
		if base == "" {
			base = source.Name + " (Copy)"
		}
		copyName, err := NextAvailableName(ctx, tx, owner.UserID, base, 0)
		if err != nil {
			return err
		}

		snapshots := make([]models.RecipeIngredient, 0, len(source.Ingredients))
		for _, ingredient := range source.Ingredients {
			snapshots = append(snapshots, models.RecipeIngredient{
				Category:     ingredient.Category,
				Name:         ingredient.Name,
				Percentage:   ingredient.Percentage,
				IngredientID: ingredient.IngredientID,
			})
		}

		clone = models.Recipe{
			UserID:                 owner.UserID,
			Name:                   copyName,
			Description:            source.Description,
			IsPublic:               visibility(owner, isPublic, true),
			TargetVolume:           source.TargetVolume,
			BaseNicotineStrength:   source.BaseNicotineStrength,
			TargetNicotineStrength: source.TargetNicotineStrength,
			Ingredients:            snapshots,
		}
		if err := recompute(&clone); err != nil {
			return err
		}
		if err := tx.Create(&clone).Error; err != nil {
			return fmt.Errorf("create recipe copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, owner.UserID, clone.ID)
}

// RecordView bumps the view counter of a recipe the viewer can see and
// returns the new value. Concurrent views may race; the counter is
// approximate.
func (s *Store) RecordView(ctx context.Context, viewerID, id uint) (int64, error) {
	if s == nil || s.db == nil {
		return 0, gorm.ErrInvalidDB
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id", "user_id", "is_public").First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("recipe not found")
		}
		return 0, fmt.Errorf("load recipe %d: %w", id, err)
	}
	if !recipe.IsPublic && recipe.UserID != viewerID {
		return 0, apperr.NotFound("recipe not found")
	}

	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}

	var views []int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("id = ?", id).
		Pluck("views", &views).Error; err != nil {
		return 0, fmt.Errorf("reload views: %w", err)
	}
	if len(views) == 0 {
		return 0, apperr.NotFound("recipe not found")
	}
	return views[0], nil
}

// CountByUser returns how many recipes the user owns.
func (s *Store) CountByUser(ctx context.Context, userID uint) (int64, error) {
	if s == nil || s.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	return count, nil
}

// Stats aggregates a user's recipes.
type Stats struct {
	RecipeCount    int64 `json:"recipe_count"`
	PublicRecipes  int64 `json:"public_recipes"`
	PrivateRecipes int64 `json:"private_recipes"`
	TotalViews     int64 `json:"total_views"`
	TotalLikes     int64 `json:"total_likes"`
}

// StatsForUser computes Stats in a single aggregate query.
func (s *Store) StatsForUser(ctx context.Context, userID uint) (Stats, error) {
	if s == nil || s.db == nil {
		return Stats{}, gorm.ErrInvalidDB
	}

	var stats Stats
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select(`COUNT(*) AS recipe_count,
			COALESCE(SUM(CASE WHEN is_public THEN 1 ELSE 0 END), 0) AS public_recipes,
			COALESCE(SUM(views), 0) AS total_views,
			COALESCE(SUM(likes), 0) AS total_likes`).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate recipe stats: %w", err)
	}
	stats.PrivateRecipes = stats.RecipeCount - stats.PublicRecipes
	return stats, nil
}

func (s *Store) checkLimit(ctx context.Context, tx *gorm.DB, owner Owner) error {
	if owner.IsPremium {
		return nil
	}
	var count int64
	if err := tx.WithContext(ctx).Model(&models.Recipe{}).Where("user_id = ?", owner.UserID).Count(&count).Error; err != nil {
		return fmt.Errorf("count recipes: %w", err)
	}
	user := models.User{IsPremium: owner.IsPremium}
	if !user.CanAddRecipe(count, s.opts.FreeRecipeLimit) {
		limit := s.opts.FreeRecipeLimit
		if limit <= 0 {
			limit = models.FreeRecipeLimit
		}
		return apperr.LimitExceeded("free accounts can store at most %d recipes; upgrade to premium for unlimited recipes", limit)
	}
	return nil
}

func loadOwned(ctx context.Context, tx *gorm.DB, userID, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := tx.WithContext(ctx).Preload("Ingredients", orderByID).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("load recipe %d: %w", id, err)
	}
	if recipe.UserID != userID {
		return nil, apperr.AccessDenied("only the owner can modify this recipe")
	}
	return &recipe, nil
}

// resolveSnapshots validates the submitted components and turns them into
// snapshots, copying missing fields from referenced inventory items.
func resolveSnapshots(ctx context.Context, tx *gorm.DB, userID uint, inputs []IngredientInput) ([]models.RecipeIngredient, error) {
	snapshots := make([]models.RecipeIngredient, 0, len(inputs))
	for i, input := range inputs {
		snapshot := models.RecipeIngredient{
			Name:         strings.TrimSpace(input.Name),
			Percentage:   input.Percentage,
			IngredientID: input.IngredientID,
		}

		rawCategory := strings.TrimSpace(input.Category)
		if input.IngredientID != nil && *input.IngredientID != 0 {
			var stock models.Ingredient
			err := tx.WithContext(ctx).Where("id = ? AND user_id = ?", *input.IngredientID, userID).First(&stock).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, apperr.NotFound("ingredient %d not found", *input.IngredientID)
				}
				return nil, fmt.Errorf("load ingredient %d: %w", *input.IngredientID, err)
			}
			if snapshot.Name == "" {
				snapshot.Name = stock.Name
			}
			if rawCategory == "" {
				rawCategory = stock.Category
			}
			if snapshot.Percentage == nil && stock.OptimalPercentage != nil {
				pct := *stock.OptimalPercentage
				snapshot.Percentage = &pct
			}
		} else {
			snapshot.IngredientID = nil
		}

		if rawCategory == "" {
			rawCategory = models.CategoryAroma
		}
		category, ok := models.NormalizeCategory(rawCategory)
		if !ok {
			return nil, apperr.Validation("ingredient %d: invalid category %q", i+1, rawCategory)
		}
		snapshot.Category = category

		if snapshot.Name == "" {
			return nil, apperr.Validation("ingredient %d: name is required", i+1)
		}
		if snapshot.Percentage != nil && (*snapshot.Percentage < 0 || *snapshot.Percentage > 100) {
			return nil, apperr.Validation("ingredient %q: percentage must be between 0 and 100", snapshot.Name)
		}
		if category == models.CategoryAroma && snapshot.Percentage == nil {
			return nil, apperr.Validation("ingredient %q: aromas need a percentage", snapshot.Name)
		}

		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// MixParams builds the calculator input for a recipe.
func MixParams(recipe *models.Recipe) mixing.Params {
	params := mixing.Params{
		TargetVolume:           recipe.TargetVolume,
		BaseNicotineStrength:   recipe.BaseNicotineStrength,
		TargetNicotineStrength: recipe.TargetNicotineStrength,
	}
	for _, ingredient := range recipe.Ingredients {
		switch ingredient.Category {
		case models.CategoryAroma:
			pct := 0.0
			if ingredient.Percentage != nil {
				pct = *ingredient.Percentage
			}
			params.Aromas = append(params.Aromas, mixing.Aroma{Name: ingredient.Name, Percentage: pct})
		case models.CategoryNicotine:
			if params.NicotineName == "" {
				params.NicotineName = ingredient.Name
			}
		case models.CategoryBase:
			if params.BaseName == "" {
				params.BaseName = ingredient.Name
			}
		}
	}
	return params
}

func recompute(recipe *models.Recipe) error {
	result, err := mixing.Calculate(MixParams(recipe))
	if err != nil {
		return err
	}
	recipe.CalculatedAmounts = result.Amounts
	return nil
}

func visibility(owner Owner, requested *bool, fallback bool) bool {
	if !owner.IsPremium {
		return true
	}
	if requested == nil {
		return fallback
	}
	return *requested
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}
