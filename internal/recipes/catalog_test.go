package recipes

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"vapex/internal/apperr"
	"vapex/models"
)

func names(recipes []models.Recipe) []string {
	out := make([]string, 0, len(recipes))
	for _, recipe := range recipes {
		out = append(out, recipe.Name)
	}
	return out
}

func equalNames(got []models.Recipe, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, recipe := range got {
		if recipe.Name != want[i] {
			return false
		}
	}
	return true
}

func TestSearchPublicFiltersByIngredientAndVisibility(t *testing.T) {
	store, database := newTestStore(t)
	owner := createUser(t, database, true)
	ctx := context.Background()
	private := false

	mustCreate(t, store, owner, CreateInput{Name: "Custard", Ingredients: []IngredientInput{aroma("Vanille Bourbon", 3)}})
	mustCreate(t, store, owner, CreateInput{Name: "Hidden Custard", IsPublic: &private, Ingredients: []IngredientInput{aroma("Vanille", 3)}})
	mustCreate(t, store, owner, CreateInput{Name: "Ice", Ingredients: []IngredientInput{aroma("Menthol", 1)}})

	found, err := store.SearchPublic(ctx, SearchQuery{Ingredient: "vanille"})
	if err != nil {
		t.Fatalf("SearchPublic: %v", err)
	}
	if !equalNames(found, "Custard") {
		t.Fatalf("ingredient filter returned %v", names(found))
	}
	if found[0].User == nil || found[0].User.ID != owner.UserID || len(found[0].Ingredients) != 1 {
		t.Fatal("expected author and ingredients to be loaded")
	}

	found, err = store.SearchPublic(ctx, SearchQuery{Text: "CUST"})
	if err != nil {
		t.Fatalf("SearchPublic: %v", err)
	}
	if !equalNames(found, "Custard") {
		t.Fatalf("text filter returned %v", names(found))
	}

	found, err = store.SearchPublic(ctx, SearchQuery{Text: "100%"})
	if err != nil {
		t.Fatalf("SearchPublic: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("wildcards must be matched literally, got %v", names(found))
	}
}

func TestSearchPublicSortOrders(t *testing.T) {
	store, database := newTestStore(t)
	owner := createUser(t, database, true)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fixtures := []struct {
		name  string
		likes int64
		views int64
		age   time.Duration
	}{
		{"Old Popular", 9, 1, 3 * time.Hour},
		{"Middle Viewed", 2, 50, 2 * time.Hour},
		{"Newest", 0, 0, time.Hour},
	}
	for _, fixture := range fixtures {
		recipe := mustCreate(t, store, owner, CreateInput{Name: fixture.name, Ingredients: []IngredientInput{aroma("A", 1)}})
		if err := database.Model(&models.Recipe{}).Where("id = ?", recipe.ID).UpdateColumns(map[string]any{
			"likes":      fixture.likes,
			"views":      fixture.views,
			"created_at": base.Add(-fixture.age),
		}).Error; err != nil {
			t.Fatalf("adjust fixture: %v", err)
		}
	}

	tests := []struct {
		sort string
		want []string
	}{
		{"", []string{"Newest", "Middle Viewed", "Old Popular"}},
		{"created_at", []string{"Newest", "Middle Viewed", "Old Popular"}},
		{"likes", []string{"Old Popular", "Middle Viewed", "Newest"}},
		{"views", []string{"Middle Viewed", "Old Popular", "Newest"}},
		{"rating", []string{"Newest", "Middle Viewed", "Old Popular"}},
		{"bogus", []string{"Newest", "Middle Viewed", "Old Popular"}},
	}
	for _, tt := range tests {
		found, err := store.SearchPublic(ctx, SearchQuery{Sort: tt.sort})
		if err != nil {
			t.Fatalf("SearchPublic(%q): %v", tt.sort, err)
		}
		if !equalNames(found, tt.want...) {
			t.Fatalf("sort %q = %v, want %v", tt.sort, names(found), tt.want)
		}
	}
}

func TestNormalizeSort(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":        SortCreatedAt,
		" Likes ": SortLikes,
		"views":   SortViews,
		"rating":  SortRating,
		"name":    SortCreatedAt,
	}
	for input, want := range tests {
		if got := NormalizeSort(input); got != want {
			t.Fatalf("NormalizeSort(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	recipes := make([]models.Recipe, 45)
	for i := range recipes {
		recipes[i].ID = uint(i + 1)
	}

	tests := []struct {
		name             string
		page, perPage    int
		wantLen          int
		wantFirst        uint
		hasNext, hasPrev bool
	}{
		{"first page", 1, 20, 20, 1, true, false},
		{"middle page", 2, 20, 20, 21, true, true},
		{"last partial page", 3, 20, 5, 41, false, true},
		{"past the end", 4, 20, 0, 0, false, true},
		{"exact fit", 1, 45, 45, 1, false, false},
		{"huge page number", math.MaxInt64 / 50, 100, 0, 0, false, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page, err := Paginate(recipes, tt.page, tt.perPage)
			if err != nil {
				t.Fatalf("Paginate: %v", err)
			}
			if len(page.Recipes) != tt.wantLen || page.Total != 45 {
				t.Fatalf("got %d of %d recipes", len(page.Recipes), page.Total)
			}
			if tt.wantLen > 0 && page.Recipes[0].ID != tt.wantFirst {
				t.Fatalf("first id = %d, want %d", page.Recipes[0].ID, tt.wantFirst)
			}
			if page.HasNext != tt.hasNext || page.HasPrev != tt.hasPrev {
				t.Fatalf("has_next=%t has_prev=%t", page.HasNext, page.HasPrev)
			}
		})
	}
}

func TestPaginateRejectsBadArguments(t *testing.T) {
	t.Parallel()

	for _, args := range [][2]int{{0, 20}, {-1, 20}, {1, 0}, {1, MaxPerPage + 1}} {
		if _, err := Paginate(nil, args[0], args[1]); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("Paginate(%d, %d) error = %v", args[0], args[1], err)
		}
	}
}
