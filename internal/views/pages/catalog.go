package pages

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"vapex/internal/views/layout"
)

// CatalogCard is one recipe as shown in the public catalog.
type CatalogCard struct {
	ID            uint
	Name          string
	Author        string
	Description   string
	Likes         int64
	Views         int64
	AverageRating float64
	Aromas        []string
}

// SortOption is a selectable catalog ordering.
type SortOption struct {
	Value string
	Label string
}

// CatalogData carries everything the catalog page renders.
type CatalogData struct {
	Query      string
	Ingredient string
	Sort       string
	Sorts      []SortOption
	Cards      []CatalogCard
	Page       int
	PerPage    int
	Total      int
	HasNext    bool
	HasPrev    bool
	Theme      string
}

// CatalogPage renders the public recipe catalog.
func CatalogPage(data CatalogData) templ.Component {
	theme := layout.ThemeByID(data.Theme)
	return layout.Layout("Public recipes", catalogBody(data, theme), theme)
}

// cardStats is the likes, views and rating line of a card.
func cardStats(card CatalogCard) string {
	return fmt.Sprintf("%d likes · %d views · %s ★",
		card.Likes, card.Views, strconv.FormatFloat(card.AverageRating, 'f', 1, 64))
}

func aromaList(aromas []string) string {
	return strings.Join(aromas, ", ")
}

func pageHref(data CatalogData, page int) string {
	values := url.Values{}
	if data.Query != "" {
		values.Set("q", data.Query)
	}
	if data.Ingredient != "" {
		values.Set("ingredient", data.Ingredient)
	}
	if data.Sort != "" {
		values.Set("sort", data.Sort)
	}
	values.Set("page", strconv.Itoa(page))
	if data.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(data.PerPage))
	}
	return "/catalog?" + values.Encode()
}
