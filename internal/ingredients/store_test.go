package ingredients

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"vapex/internal/apperr"
	"vapex/internal/db/dbtest"
	"vapex/models"
)

var userSeq atomic.Int64

func createUser(t *testing.T, database *gorm.DB) uint {
	t.Helper()
	user := models.User{Email: fmt.Sprintf("stock-%d@example.com", userSeq.Add(1)), PasswordHash: "x"}
	if err := database.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

func pct(v float64) *float64 {
	return &v
}

func TestCreateNormalizesAndValidates(t *testing.T) {
	database := dbtest.Open(t)
	store := NewStore(database, Options{FreeIngredientLimit: 5})
	ctx := context.Background()
	userID := createUser(t, database)

	item, err := store.Create(ctx, userID, false, Input{Category: "Nikotin", Name: "  Shot 20 ", NicotineStrength: pct(20), PGPercentage: 50, VGPercentage: 50})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Category != models.CategoryNicotine || item.Name != "Shot 20" || item.ID == 0 {
		t.Fatalf("unexpected item %+v", item)
	}

	tests := []struct {
		name string
		in   Input
	}{
		{"missing name", Input{Category: "aroma"}},
		{"missing category", Input{Name: "X"}},
		{"unknown category", Input{Category: "sugar", Name: "X"}},
		{"percentage above 100", Input{Category: "aroma", Name: "X", OptimalPercentage: pct(120)}},
		{"negative price", Input{Category: "base", Name: "X", Price: pct(-1)}},
		{"blank name", Input{Category: "aroma", Name: "   "}},
	}
	for _, tt := range tests {
		if _, err := store.Create(ctx, userID, false, tt.in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tt.name, err)
		}
	}
}

func TestCreateEnforcesFreeLimit(t *testing.T) {
	database := dbtest.Open(t)
	store := NewStore(database, Options{})
	ctx := context.Background()
	free := createUser(t, database)
	premium := createUser(t, database)

	for i := 0; i < models.FreeIngredientLimit; i++ {
		if _, err := store.Create(ctx, free, false, Input{Category: "aroma", Name: fmt.Sprintf("A%d", i)}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		if _, err := store.Create(ctx, premium, true, Input{Category: "aroma", Name: fmt.Sprintf("A%d", i)}); err != nil {
			t.Fatalf("premium Create %d: %v", i, err)
		}
	}

	_, err := store.Create(ctx, free, false, Input{Category: "aroma", Name: "One too many"})
	if !errors.Is(err, apperr.ErrLimitExceeded) {
		t.Fatalf("expected limit error, got %v", err)
	}
	if _, err := store.Create(ctx, premium, true, Input{Category: "aroma", Name: "Unlimited"}); err != nil {
		t.Fatalf("premium accounts are unlimited: %v", err)
	}
	if store.FreeLimit() != models.FreeIngredientLimit {
		t.Fatalf("FreeLimit = %d", store.FreeLimit())
	}
}

func TestListFiltersAndScopesToUser(t *testing.T) {
	database := dbtest.Open(t)
	store := NewStore(database, Options{})
	ctx := context.Background()
	userID := createUser(t, database)
	other := createUser(t, database)

	for _, in := range []Input{
		{Category: "aroma", Name: "Vanille", Brand: "TPA"},
		{Category: "aroma", Name: "Banana", Brand: "Capella"},
		{Category: "base", Name: "Base 70/30"},
	} {
		if _, err := store.Create(ctx, userID, true, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := store.Create(ctx, other, true, Input{Category: "aroma", Name: "Vanille"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := store.List(ctx, userID, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].Name != "Banana" {
		t.Fatalf("expected 3 items sorted by name, got %+v", all)
	}

	aromas, err := store.List(ctx, userID, Filter{Category: "aroma", Search: "VAN"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(aromas) != 1 || aromas[0].Name != "Vanille" {
		t.Fatalf("filtered list = %+v", aromas)
	}

	capella, err := store.List(ctx, userID, Filter{Brand: "capel"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(capella) != 1 || capella[0].Name != "Banana" {
		t.Fatalf("brand filter = %+v", capella)
	}

	if _, err := store.List(ctx, userID, Filter{Category: "sugar"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for bad category, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	database := dbtest.Open(t)
	store := NewStore(database, Options{})
	ctx := context.Background()
	userID := createUser(t, database)
	stranger := createUser(t, database)

	item, err := store.Create(ctx, userID, true, Input{Category: "aroma", Name: "Mango", OptimalPercentage: pct(5)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "Mango Ripe"
	updated, err := store.Update(ctx, userID, item.ID, Patch{Name: &name, OptimalPercentage: pct(6)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != name || *updated.OptimalPercentage != 6 {
		t.Fatalf("unexpected update %+v", updated)
	}

	reloaded, err := store.Get(ctx, userID, item.ID)
	if err != nil || reloaded.Name != name {
		t.Fatalf("reload = %+v, %v", reloaded, err)
	}

	bad := "liquid"
	if _, err := store.Update(ctx, userID, item.ID, Patch{Category: &bad}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.Update(ctx, stranger, item.ID, Patch{Name: &name}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("strangers cannot see the item, got %v", err)
	}

	if err := store.Delete(ctx, stranger, item.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Delete(ctx, userID, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if count, _ := store.CountByUser(ctx, userID); count != 0 {
		t.Fatalf("expected empty inventory, got %d", count)
	}
}

func TestSuggestions(t *testing.T) {
	database := dbtest.Open(t)
	store := NewStore(database, Options{})
	ctx := context.Background()
	userID := createUser(t, database)
	other := createUser(t, database)

	for i := 0; i < 7; i++ {
		if _, err := store.Create(ctx, userID, true, Input{Category: "aroma", Name: fmt.Sprintf("Berry %d", i)}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := store.Create(ctx, userID, true, Input{Category: "base", Name: "Berry Base"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, other, true, Input{Category: "aroma", Name: "Berry Foreign"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	short, err := store.Suggestions(ctx, userID, "b", "")
	if err != nil || len(short) != 0 {
		t.Fatalf("one-letter query = %v, %v", short, err)
	}

	suggestions, err := store.Suggestions(ctx, userID, "ber", "")
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(suggestions) != SuggestionLimit {
		t.Fatalf("expected %d suggestions, got %d", SuggestionLimit, len(suggestions))
	}
	for _, suggestion := range suggestions {
		if !suggestion.IsOwn || suggestion.Name == "Berry Foreign" {
			t.Fatalf("unexpected suggestion %+v", suggestion)
		}
	}

	bases, err := store.Suggestions(ctx, userID, "berry", "base")
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(bases) != 1 || bases[0].Name != "Berry Base" {
		t.Fatalf("category filtered suggestions = %+v", bases)
	}
}
