package handlers

import (
	"net/http"

	"github.com/a-h/templ"

	applog "vapex/internal/log"
	"vapex/internal/recipes"
	"vapex/internal/views/pages"
	"vapex/models"
)

var catalogSorts = []pages.SortOption{
	{Value: recipes.SortCreatedAt, Label: "Newest"},
	{Value: recipes.SortLikes, Label: "Most liked"},
	{Value: recipes.SortViews, Label: "Most viewed"},
	{Value: recipes.SortRating, Label: "Top rated"},
}

// CatalogPage renders the public catalog as HTML. Invalid paging parameters
// fall back to the first page.
func CatalogPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if database == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	data := pages.CatalogData{
		Query:      query.Get("q"),
		Ingredient: query.Get("ingredient"),
		Sort:       recipes.NormalizeSort(query.Get("sort")),
		Sorts:      catalogSorts,
		Theme:      query.Get("theme"),
	}

	found, err := recipeStore().SearchPublic(r.Context(), recipes.SearchQuery{
		Text:       data.Query,
		Ingredient: data.Ingredient,
		Sort:       data.Sort,
	})
	if err != nil {
		applog.Error(r.Context(), "failed to load catalog", "error", err)
		http.Error(w, "unable to load recipes", http.StatusInternalServerError)
		return
	}

	page, pageErr := queryInt(r, "page", 1)
	perPage, perPageErr := queryInt(r, "per_page", recipes.DefaultPerPage)
	result, err := recipes.Paginate(found, page, perPage)
	if pageErr != nil || perPageErr != nil || err != nil {
		applog.Debug(r.Context(), "catalog paging reset", "page", page, "per_page", perPage)
		result, _ = recipes.Paginate(found, 1, recipes.DefaultPerPage)
	}

	ids := make([]uint, 0, len(result.Recipes))
	for _, recipe := range result.Recipes {
		ids = append(ids, recipe.ID)
	}
	averages, err := voteLedger().AverageRatings(r.Context(), ids)
	if err != nil {
		applog.Error(r.Context(), "failed to load ratings", "error", err)
		http.Error(w, "unable to load recipes", http.StatusInternalServerError)
		return
	}

	data.Page = result.Page
	data.PerPage = result.PerPage
	data.Total = result.Total
	data.HasNext = result.HasNext
	data.HasPrev = result.HasPrev
	for _, recipe := range result.Recipes {
		data.Cards = append(data.Cards, catalogCard(recipe, averages[recipe.ID]))
	}

	renderComponent(w, r, pages.CatalogPage(data))
}

func catalogCard(recipe models.Recipe, average float64) pages.CatalogCard {
	card := pages.CatalogCard{
		ID:            recipe.ID,
		Name:          recipe.Name,
		Description:   recipe.Description,
		Likes:         recipe.Likes,
		Views:         recipe.Views,
		AverageRating: average,
		Aromas:        recipe.AromaNames(),
	}
	if recipe.User != nil {
		card.Author = recipe.User.Name
	}
	return card
}

func renderComponent(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render page", "error", err)
		http.Error(w, "unable to render page", http.StatusInternalServerError)
	}
}
