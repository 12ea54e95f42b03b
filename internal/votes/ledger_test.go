package votes

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vapex/internal/apperr"
	"vapex/internal/db/dbtest"
	"vapex/models"
)

var userSeq atomic.Int64

func createUser(t *testing.T, database *gorm.DB) uint {
	t.Helper()
	user := models.User{Email: fmt.Sprintf("voter-%d@example.com", userSeq.Add(1)), PasswordHash: "x"}
	if err := database.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

func createRecipe(t *testing.T, database *gorm.DB, ownerID uint, public bool) uint {
	t.Helper()
	recipe := models.Recipe{UserID: ownerID, Name: "R", IsPublic: public, TargetVolume: 10}
	if err := database.Create(&recipe).Error; err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	return recipe.ID
}

func storedLikes(t *testing.T, database *gorm.DB, recipeID uint) int64 {
	t.Helper()
	var recipe models.Recipe
	if err := database.First(&recipe, recipeID).Error; err != nil {
		t.Fatalf("load recipe: %v", err)
	}
	return recipe.Likes
}

func TestAverageRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ratings []int
		want    float64
	}{
		{nil, 0},
		{[]int{4, 5, 3}, 4.0},
		{[]int{5, 4}, 4.5},
		{[]int{1, 2, 2}, 1.7},
	}
	for _, tt := range tests {
		if got := AverageRating(tt.ratings); got != tt.want {
			t.Fatalf("AverageRating(%v) = %v, want %v", tt.ratings, got, tt.want)
		}
	}
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	database := dbtest.Open(t)
	ledger := NewLedger(database)
	ctx := context.Background()
	owner := createUser(t, database)
	voter := createUser(t, database)
	recipeID := createRecipe(t, database, owner, true)

	first, err := ledger.ToggleLike(ctx, voter, recipeID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !first.Liked || first.TotalLikes != 1 || storedLikes(t, database, recipeID) != 1 {
		t.Fatalf("after first toggle: %+v", first)
	}

	second, err := ledger.ToggleLike(ctx, voter, recipeID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if second.Liked || second.TotalLikes != 0 || storedLikes(t, database, recipeID) != 0 {
		t.Fatalf("after second toggle: %+v", second)
	}
	if second.Vote.IsLike != nil {
		t.Fatal("unliking clears is_like")
	}

	var rows int64
	database.Model(&models.Vote{}).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected a single ledger row, got %d", rows)
	}
}

func TestToggleLikeCountsAcrossUsers(t *testing.T) {
	database := dbtest.Open(t)
	ledger := NewLedger(database)
	ctx := context.Background()
	owner := createUser(t, database)
	recipeID := createRecipe(t, database, owner, true)

	for i := 0; i < 3; i++ {
		if _, err := ledger.ToggleLike(ctx, createUser(t, database), recipeID); err != nil {
			t.Fatalf("ToggleLike: %v", err)
		}
	}
	result, err := ledger.ToggleLike(ctx, owner, recipeID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if result.TotalLikes != 4 || storedLikes(t, database, recipeID) != 4 {
		t.Fatalf("expected 4 likes, got %d", result.TotalLikes)
	}
}

func TestVotingRequiresVisibleRecipe(t *testing.T) {
	database := dbtest.Open(t)
	ledger := NewLedger(database)
	ctx := context.Background()
	owner := createUser(t, database)
	stranger := createUser(t, database)
	private := createRecipe(t, database, owner, false)

	if _, err := ledger.ToggleLike(ctx, stranger, private); !errors.Is(err, apperr.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if _, err := ledger.SetRating(ctx, stranger, private, 5, ""); !errors.Is(err, apperr.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if _, err := ledger.ToggleLike(ctx, stranger, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := ledger.ToggleLike(ctx, owner, private); err != nil {
		t.Fatalf("owner likes own private recipe: %v", err)
	}
}

func TestSetRating(t *testing.T) {
	database := dbtest.Open(t)
	ledger := NewLedger(database)
	ctx := context.Background()
	owner := createUser(t, database)
	recipeID := createRecipe(t, database, owner, true)

	for _, bad := range []int{0, 6, -1} {
		if _, err := ledger.SetRating(ctx, owner, recipeID, bad, ""); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("rating %d: expected validation error, got %v", bad, err)
		}
	}

	voters := []uint{createUser(t, database), createUser(t, database), createUser(t, database)}
	var result RatingResult
	for i, rating := range []int{4, 5, 3} {
		var err error
		result, err = ledger.SetRating(ctx, voters[i], recipeID, rating, "  ")
		if err != nil {
			t.Fatalf("SetRating: %v", err)
		}
	}
	if result.AverageRating != 4.0 {
		t.Fatalf("average = %v, want 4.0", result.AverageRating)
	}
	if result.Vote.Comment != nil {
		t.Fatal("blank comments are stored as null")
	}

	// A like survives a later rating and vice versa.
	if _, err := ledger.ToggleLike(ctx, voters[0], recipeID); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	result, err := ledger.SetRating(ctx, voters[0], recipeID, 1, "Too sweet")
	if err != nil {
		t.Fatalf("SetRating: %v", err)
	}
	if !result.Vote.Liked() || result.Vote.Comment == nil || *result.Vote.Comment != "Too sweet" {
		t.Fatalf("unexpected vote %+v", result.Vote)
	}
	if result.AverageRating != 3.0 {
		t.Fatalf("average = %v, want 3.0", result.AverageRating)
	}

	averages, err := ledger.AverageRatings(ctx, []uint{recipeID, 9999})
	if err != nil {
		t.Fatalf("AverageRatings: %v", err)
	}
	if averages[recipeID] != 3.0 || averages[9999] != 0 {
		t.Fatalf("averages = %v", averages)
	}
}

func TestDeleteRecountsLikes(t *testing.T) {
	database := dbtest.Open(t)
	ledger := NewLedger(database)
	ctx := context.Background()
	owner := createUser(t, database)
	voter := createUser(t, database)
	recipeID := createRecipe(t, database, owner, true)

	liked, err := ledger.ToggleLike(ctx, voter, recipeID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}

	if _, err := ledger.Delete(ctx, owner, liked.Vote.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("only the voter can delete a vote, got %v", err)
	}
	gotRecipe, err := ledger.Delete(ctx, voter, liked.Vote.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotRecipe != recipeID {
		t.Fatalf("Delete returned recipe %d", gotRecipe)
	}
	if storedLikes(t, database, recipeID) != 0 {
		t.Fatal("likes not recounted after delete")
	}
}

func TestFindAndReviews(t *testing.T) {
	database := dbtest.Open(t)
	ledger := NewLedger(database)
	ctx := context.Background()
	owner := createUser(t, database)
	recipeID := createRecipe(t, database, owner, true)
	liker := createUser(t, database)
	critic := createUser(t, database)

	if vote, err := ledger.Find(ctx, liker, recipeID); err != nil || vote != nil {
		t.Fatalf("expected no vote yet, got %+v, %v", vote, err)
	}

	if _, err := ledger.ToggleLike(ctx, liker, recipeID); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if _, err := ledger.SetRating(ctx, critic, recipeID, 2, "Meh"); err != nil {
		t.Fatalf("SetRating: %v", err)
	}

	vote, err := ledger.Find(ctx, liker, recipeID)
	if err != nil || vote == nil || !vote.Liked() {
		t.Fatalf("Find = %+v, %v", vote, err)
	}

	reviews, err := ledger.Reviews(ctx, recipeID)
	if err != nil {
		t.Fatalf("Reviews: %v", err)
	}
	if len(reviews) != 1 || reviews[0].UserID != critic {
		t.Fatalf("expected only the rated vote, got %+v", reviews)
	}
}

func TestVoteMutationsLockRecipeRow(t *testing.T) {
	t.Parallel()

	database := dbtest.Open(t)
	dry := database.Session(&gorm.Session{DryRun: true})

	var recipe models.Recipe
	stmt := recipeForUpdate(dry).First(&recipe, 1).Statement
	c, ok := stmt.Clauses["FOR"]
	if !ok {
		t.Fatal("expected a FOR UPDATE locking clause on the recipe lookup")
	}
	locking, ok := c.Expression.(clause.Locking)
	if !ok || locking.Strength != "UPDATE" {
		t.Fatalf("unexpected locking clause %#v", c.Expression)
	}
}
