// Package votes implements the per-user, per-recipe vote ledger: like
// toggling, ratings with comments, and the aggregates derived from it.
package votes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vapex/internal/apperr"
	applog "vapex/internal/log"
	"vapex/models"
)

const maxCommentLength = 2000

// Ledger reads and writes votes.
type Ledger struct {
	db *gorm.DB
}

// NewLedger returns a Ledger backed by db.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// LikeResult reports the state after a toggle.
type LikeResult struct {
	Vote       models.Vote
	Liked      bool
	TotalLikes int64
}

// ToggleLike flips the user's like on a recipe and recounts the recipe's
// likes from the ledger, all in one transaction. Unliking clears is_like to
// NULL and keeps the row so a rating survives.
func (l *Ledger) ToggleLike(ctx context.Context, userID, recipeID uint) (LikeResult, error) {
	if l == nil || l.db == nil {
		return LikeResult{}, gorm.ErrInvalidDB
	}

	var result LikeResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureVotable(ctx, tx, userID, recipeID); err != nil {
			return err
		}

		vote, created, err := findOrCreate(ctx, tx, userID, recipeID, func(v *models.Vote) {
			v.IsLike = boolPtr(true)
		})
		if err != nil {
			return err
		}

		if !created {
			var next *bool
			if !vote.Liked() {
				next = boolPtr(true)
			}
			if err := tx.Model(&vote).Update("is_like", next).Error; err != nil {
				return fmt.Errorf("update like: %w", err)
			}
			vote.IsLike = next
		}

		total, err := recountLikes(ctx, tx, recipeID)
		if err != nil {
			return err
		}

		result = LikeResult{Vote: vote, Liked: vote.Liked(), TotalLikes: total}
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}

	applog.Debug(ctx, "like toggled", "recipe", recipeID, "user", userID, "liked", result.Liked, "likes", result.TotalLikes)
	return result, nil
}

// RatingResult reports the vote and the recipe's new average.
type RatingResult struct {
	Vote          models.Vote
	AverageRating float64
}

// SetRating records a 1-5 rating with an optional comment. An empty comment
// clears any previous one.
func (l *Ledger) SetRating(ctx context.Context, userID, recipeID uint, rating int, comment string) (RatingResult, error) {
	if l == nil || l.db == nil {
		return RatingResult{}, gorm.ErrInvalidDB
	}
	if rating < 1 || rating > 5 {
		return RatingResult{}, apperr.Validation("rating must be a number between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLength {
		return RatingResult{}, apperr.Validation("comment must be at most %d characters", maxCommentLength)
	}
	var commentValue *string
	if comment != "" {
		commentValue = &comment
	}

	var result RatingResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureVotable(ctx, tx, userID, recipeID); err != nil {
			return err
		}

		vote, created, err := findOrCreate(ctx, tx, userID, recipeID, func(v *models.Vote) {
			v.Rating = &rating
			v.Comment = commentValue
		})
		if err != nil {
			return err
		}

		if !created {
			if err := tx.Model(&vote).Updates(map[string]any{
				"rating":  rating,
				"comment": commentValue,
			}).Error; err != nil {
				return fmt.Errorf("update rating: %w", err)
			}
			vote.Rating = &rating
			vote.Comment = commentValue
		}

		averages, err := averageRatings(ctx, tx, []uint{recipeID})
		if err != nil {
			return err
		}
		result = RatingResult{Vote: vote, AverageRating: averages[recipeID]}
		return nil
	})
	if err != nil {
		return RatingResult{}, err
	}

	applog.Debug(ctx, "rating stored", "recipe", recipeID, "user", userID, "rating", rating)
	return result, nil
}

// Delete removes one of the user's votes and recounts the recipe's likes.
// It returns the recipe the vote belonged to.
func (l *Ledger) Delete(ctx context.Context, userID, voteID uint) (uint, error) {
	if l == nil || l.db == nil {
		return 0, gorm.ErrInvalidDB
	}

	var recipeID uint
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vote models.Vote
		if err := tx.Where("id = ? AND user_id = ?", voteID, userID).First(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("vote not found")
			}
			return fmt.Errorf("load vote %d: %w", voteID, err)
		}
		if err := lockRecipe(ctx, tx, vote.RecipeID, &models.Recipe{}); err != nil {
			return fmt.Errorf("lock recipe %d: %w", vote.RecipeID, err)
		}
		if err := tx.Delete(&vote).Error; err != nil {
			return fmt.Errorf("delete vote %d: %w", voteID, err)
		}
		recipeID = vote.RecipeID
		_, err := recountLikes(ctx, tx, recipeID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return recipeID, nil
}

// Find returns the user's vote on a recipe, or nil when there is none.
func (l *Ledger) Find(ctx context.Context, userID, recipeID uint) (*models.Vote, error) {
	if l == nil || l.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var vote models.Vote
	err := l.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load vote: %w", err)
	}
	return &vote, nil
}

// Reviews lists the votes on a recipe that carry a rating or a comment,
// newest first.
func (l *Ledger) Reviews(ctx context.Context, recipeID uint) ([]models.Vote, error) {
	if l == nil || l.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var votes []models.Vote
	if err := l.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Where("rating IS NOT NULL OR comment IS NOT NULL").
		Order("created_at desc, id desc").
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return votes, nil
}

// AverageRatings returns the rounded mean rating for each recipe id. Recipes
// without ratings map to 0.
func (l *Ledger) AverageRatings(ctx context.Context, recipeIDs []uint) (map[uint]float64, error) {
	if l == nil || l.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	return averageRatings(ctx, l.db, recipeIDs)
}

// meanRating is total/count rounded to one decimal, or 0 without ratings.
func meanRating(total, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return roundOne(float64(total) / float64(count))
}

func averageRatings(ctx context.Context, db *gorm.DB, recipeIDs []uint) (map[uint]float64, error) {
	averages := make(map[uint]float64, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return averages, nil
	}

	var rows []struct {
		RecipeID uint
		Total    int64
		Count    int64
	}
	if err := db.WithContext(ctx).Model(&models.Vote{}).
		Select("recipe_id, SUM(rating) AS total, COUNT(rating) AS count").
		Where("recipe_id IN ? AND rating IS NOT NULL", recipeIDs).
		Group("recipe_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate ratings: %w", err)
	}

	for _, id := range recipeIDs {
		averages[id] = 0
	}
	for _, row := range rows {
		averages[row.RecipeID] = meanRating(row.Total, row.Count)
	}
	return averages, nil
}

func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}

// lockRecipe loads the recipe row FOR UPDATE. Vote mutations on one recipe
// queue behind this lock, so the like recount that follows sees every
// committed vote. SQLite ignores the clause and serialises writers instead.
func lockRecipe(ctx context.Context, tx *gorm.DB, recipeID uint, recipe *models.Recipe) error {
	return recipeForUpdate(tx.WithContext(ctx)).First(recipe, recipeID).Error
}

func recipeForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "user_id", "is_public")
}

// ensureVotable locks the recipe and checks it is public or owned by the voter.
func ensureVotable(ctx context.Context, tx *gorm.DB, userID, recipeID uint) error {
	var recipe models.Recipe
	if err := lockRecipe(ctx, tx, recipeID, &recipe); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("recipe not found")
		}
		return fmt.Errorf("load recipe %d: %w", recipeID, err)
	}
	if !recipe.IsPublic && recipe.UserID != userID {
		return apperr.AccessDenied("access denied")
	}
	return nil
}

// findOrCreate loads the (user, recipe) row or inserts one initialised by
// init. The insert ignores unique violations so a concurrent creator wins and
// its row is returned instead; created reports whether init was applied.
func findOrCreate(ctx context.Context, tx *gorm.DB, userID, recipeID uint, init func(*models.Vote)) (models.Vote, bool, error) {
	var vote models.Vote
	err := tx.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).First(&vote).Error
	if err == nil {
		return vote, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Vote{}, false, fmt.Errorf("load vote: %w", err)
	}

	vote = models.Vote{UserID: userID, RecipeID: recipeID}
	init(&vote)
	insert := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "recipe_id"}},
		DoNothing: true,
	}).Create(&vote)
	if insert.Error != nil {
		return models.Vote{}, false, fmt.Errorf("create vote: %w", insert.Error)
	}
	if insert.RowsAffected == 1 {
		return vote, true, nil
	}

	applog.Debug(ctx, "vote created concurrently, reloading", "recipe", recipeID, "user", userID)
	vote = models.Vote{}
	if err := tx.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).First(&vote).Error; err != nil {
		return models.Vote{}, false, fmt.Errorf("reload vote: %w", err)
	}
	return vote, false, nil
}

// recountLikes rewrites recipes.likes from the ledger.
func recountLikes(ctx context.Context, tx *gorm.DB, recipeID uint) (int64, error) {
	var total int64
	if err := tx.WithContext(ctx).Model(&models.Vote{}).
		Where("recipe_id = ? AND is_like = ?", recipeID, true).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	if err := tx.WithContext(ctx).Model(&models.Recipe{}).
		Where("id = ?", recipeID).
		UpdateColumn("likes", total).Error; err != nil {
		return 0, fmt.Errorf("store like count: %w", err)
	}
	return total, nil
}

func boolPtr(v bool) *bool {
	return &v
}
