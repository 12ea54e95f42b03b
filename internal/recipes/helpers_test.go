package recipes

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"vapex/internal/db/dbtest"
	"vapex/models"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	database := dbtest.Open(t)
	return NewStore(database, Options{FreeRecipeLimit: 3}), database
}

var userSeq atomic.Int64

func createUser(t *testing.T, database *gorm.DB, premium bool) Owner {
	t.Helper()
	user := models.User{
		Email:        fmt.Sprintf("user-%d@example.com", userSeq.Add(1)),
		PasswordHash: "x",
		IsPremium:    premium,
	}
	if err := database.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return Owner{UserID: user.ID, IsPremium: premium}
}

func pct(v float64) *float64 {
	return &v
}

func aroma(name string, percentage float64) IngredientInput {
	return IngredientInput{Category: models.CategoryAroma, Name: name, Percentage: pct(percentage)}
}

func mustCreate(t *testing.T, store *Store, owner Owner, in CreateInput) *models.Recipe {
	t.Helper()
	if in.TargetVolume == 0 {
		in.TargetVolume = 10
	}
	recipe, err := store.Create(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	return recipe
}
