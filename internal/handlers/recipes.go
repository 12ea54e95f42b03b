package handlers

import (
	"context"
	"net/http"
	"time"

	applog "vapex/internal/log"
	"vapex/internal/recipes"
	"vapex/models"
)

const recipesPrefix = "/api/recipes"

type recipeIngredientResponse struct {
	ID           uint     `json:"id"`
	Category     string   `json:"category"`
	Name         string   `json:"name"`
	Percentage   *float64 `json:"percentage"`
	IngredientID *uint    `json:"ingredient_id,omitempty"`
}

type recipeResponse struct {
	ID                     uint                       `json:"id"`
	UserID                 uint                       `json:"user_id"`
	Author                 string                     `json:"author"`
	Name                   string                     `json:"name"`
	Description            string                     `json:"description"`
	IsPublic               bool                       `json:"is_public"`
	TargetVolume           float64                    `json:"target_volume"`
	BaseNicotineStrength   float64                    `json:"nicotine_base_strength"`
	TargetNicotineStrength float64                    `json:"target_nicotine_strength"`
	CalculatedAmounts      map[string]float64         `json:"calculated_amounts"`
	Views                  int64                      `json:"views"`
	Likes                  int64                      `json:"likes"`
	AverageRating          float64                    `json:"average_rating"`
	Ingredients            []recipeIngredientResponse `json:"ingredients"`
	CreatedAt              time.Time                  `json:"created_at"`
	UpdatedAt              time.Time                  `json:"updated_at"`
	CanEdit                bool                       `json:"can_edit"`
}

type paginationResponse struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

type createRecipeRequest struct {
	Name                   string                    `json:"name" validate:"max=200"`
	Description            string                    `json:"description" validate:"max=2000"`
	IsPublic               *bool                     `json:"is_public"`
	TargetVolume           float64                   `json:"target_volume"`
	BaseNicotineStrength   float64                   `json:"nicotine_base_strength"`
	TargetNicotineStrength float64                   `json:"target_nicotine_strength"`
	Ingredients            []recipes.IngredientInput `json:"ingredients" validate:"required,min=1,max=50"`
}

type updateRecipeRequest struct {
	Name                   *string                    `json:"name" validate:"omitempty,max=200"`
	Description            *string                    `json:"description" validate:"omitempty,max=2000"`
	IsPublic               *bool                      `json:"is_public"`
	TargetVolume           *float64                   `json:"target_volume"`
	BaseNicotineStrength   *float64                   `json:"nicotine_base_strength"`
	TargetNicotineStrength *float64                   `json:"target_nicotine_strength"`
	Ingredients            *[]recipes.IngredientInput `json:"ingredients"`
}

type duplicateRecipeRequest struct {
	Name     string `json:"name" validate:"max=200"`
	IsPublic *bool  `json:"is_public"`
}

type ratingRequest struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// RecipeResource dispatches /api/recipes and its sub-resources.
func RecipeResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "recipe request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	segments := pathSegments(r, recipesPrefix)
	if len(segments) == 0 {
		switch r.Method {
		case http.MethodGet:
			listOwnRecipes(w, r)
		case http.MethodPost:
			createRecipe(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
		return
	}

	if len(segments) == 1 && segments[0] == "public" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		listPublicRecipes(w, r)
		return
	}

	id, err := parseID(segments[0])
	if err != nil || len(segments) > 2 {
		applog.Debug(r.Context(), "invalid recipe path", "path", r.URL.Path)
		writeJSONError(w, http.StatusNotFound, "recipe not found")
		return
	}

	if len(segments) == 2 {
		dispatchRecipeAction(w, r, id, segments[1])
		return
	}

	switch r.Method {
	case http.MethodGet:
		showRecipe(w, r, id)
	case http.MethodPut, http.MethodPatch:
		updateRecipe(w, r, id)
	case http.MethodDelete:
		deleteRecipe(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func dispatchRecipeAction(w http.ResponseWriter, r *http.Request, id uint, action string) {
	method := http.MethodPost
	switch action {
	case "votes", "my-vote":
		method = http.MethodGet
	case "duplicate", "view", "like", "rating":
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != method {
		methodNotAllowed(w, method)
		return
	}

	switch action {
	case "duplicate":
		duplicateRecipe(w, r, id)
	case "view":
		recordRecipeView(w, r, id)
	case "like":
		toggleRecipeLike(w, r, id)
	case "rating":
		rateRecipe(w, r, id)
	case "votes":
		listRecipeVotes(w, r, id)
	case "my-vote":
		showMyVote(w, r, id)
	}
}

func listOwnRecipes(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := recipeStore().ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err, "unable to load recipes")
		return
	}
	for i := range list {
		list[i].User = user
	}
	responses, err := projectRecipes(r.Context(), list, user.ID)
	if err != nil {
		writeError(w, r, err, "unable to load recipes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": responses})
}

func listPublicRecipes(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err, "unable to load recipes")
		return
	}
	perPage, err := queryInt(r, "per_page", recipes.DefaultPerPage)
	if err != nil {
		writeError(w, r, err, "unable to load recipes")
		return
	}

	query := r.URL.Query()
	sortKey := recipes.NormalizeSort(query.Get("sort"))
	found, err := recipeStore().SearchPublic(r.Context(), recipes.SearchQuery{
		Text:       query.Get("q"),
		Ingredient: query.Get("ingredient"),
		Sort:       sortKey,
	})
	if err != nil {
		writeError(w, r, err, "unable to load recipes")
		return
	}

	result, err := recipes.Paginate(found, page, perPage)
	if err != nil {
		writeError(w, r, err, "unable to load recipes")
		return
	}

	responses, err := projectRecipes(r.Context(), result.Recipes, viewerID(r))
	if err != nil {
		writeError(w, r, err, "unable to load recipes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recipes": responses,
		"sort":    sortKey,
		"pagination": paginationResponse{
			Page:    result.Page,
			PerPage: result.PerPage,
			Total:   result.Total,
			HasNext: result.HasNext,
			HasPrev: result.HasPrev,
		},
	})
}

func showRecipe(w http.ResponseWriter, r *http.Request, id uint) {
	viewer := viewerID(r)
	recipe, err := recipeStore().Get(r.Context(), viewer, id)
	if err != nil {
		writeError(w, r, err, "unable to load recipe")
		return
	}
	writeRecipe(w, r, http.StatusOK, recipe, viewer)
}

func createRecipe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload createRecipeRequest
	if err := decodeAndValidate(r, &payload, false); err != nil {
		writeError(w, r, err, "unable to create recipe")
		return
	}

	recipe, err := recipeStore().Create(r.Context(), ownerOf(user), recipes.CreateInput{
		Name:                   payload.Name,
		Description:            payload.Description,
		IsPublic:               payload.IsPublic,
		TargetVolume:           payload.TargetVolume,
		BaseNicotineStrength:   payload.BaseNicotineStrength,
		TargetNicotineStrength: payload.TargetNicotineStrength,
		Ingredients:            payload.Ingredients,
	})
	if err != nil {
		writeError(w, r, err, "unable to create recipe")
		return
	}

	options.Metrics.RecipeEvent("created")
	applog.Info(r.Context(), "recipe created", "recipe", recipe.ID, "user", user.ID)
	writeRecipe(w, r, http.StatusCreated, recipe, user.ID)
}

func updateRecipe(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload updateRecipeRequest
	if err := decodeAndValidate(r, &payload, false); err != nil {
		writeError(w, r, err, "unable to update recipe")
		return
	}

	recipe, err := recipeStore().Update(r.Context(), ownerOf(user), id, recipes.UpdateInput{
		Name:                   payload.Name,
		Description:            payload.Description,
		IsPublic:               payload.IsPublic,
		TargetVolume:           payload.TargetVolume,
		BaseNicotineStrength:   payload.BaseNicotineStrength,
		TargetNicotineStrength: payload.TargetNicotineStrength,
		Ingredients:            payload.Ingredients,
	})
	if err != nil {
		writeError(w, r, err, "unable to update recipe")
		return
	}

	options.Metrics.RecipeEvent("updated")
	writeRecipe(w, r, http.StatusOK, recipe, user.ID)
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := recipeStore().Delete(r.Context(), user.ID, id); err != nil {
		writeError(w, r, err, "unable to delete recipe")
		return
	}
	options.Metrics.RecipeEvent("deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "recipe deleted"})
}

func duplicateRecipe(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload duplicateRecipeRequest
	if err := decodeAndValidate(r, &payload, true); err != nil {
		writeError(w, r, err, "unable to duplicate recipe")
		return
	}

	recipe, err := recipeStore().Duplicate(r.Context(), ownerOf(user), id, payload.Name, payload.IsPublic)
	if err != nil {
		writeError(w, r, err, "unable to duplicate recipe")
		return
	}
	options.Metrics.RecipeEvent("duplicated")
	writeRecipe(w, r, http.StatusCreated, recipe, user.ID)
}

func recordRecipeView(w http.ResponseWriter, r *http.Request, id uint) {
	views, err := recipeStore().RecordView(r.Context(), viewerID(r), id)
	if err != nil {
		writeError(w, r, err, "unable to record view")
		return
	}
	options.Metrics.RecipeEvent("viewed")
	writeJSON(w, http.StatusOK, map[string]int64{"views": views})
}

func writeRecipe(w http.ResponseWriter, r *http.Request, status int, recipe *models.Recipe, viewer uint) {
	responses, err := projectRecipes(r.Context(), []models.Recipe{*recipe}, viewer)
	if err != nil {
		writeError(w, r, err, "unable to load recipe")
		return
	}
	writeJSON(w, status, map[string]any{"recipe": responses[0]})
}

// projectRecipes shapes recipes for clients, attaching average ratings in a
// single query.
func projectRecipes(ctx context.Context, list []models.Recipe, viewer uint) ([]recipeResponse, error) {
	ids := make([]uint, 0, len(list))
	for _, recipe := range list {
		ids = append(ids, recipe.ID)
	}
	averages, err := voteLedger().AverageRatings(ctx, ids)
	if err != nil {
		return nil, err
	}

	responses := make([]recipeResponse, 0, len(list))
	for _, recipe := range list {
		resp := recipeResponse{
			ID:                     recipe.ID,
			UserID:                 recipe.UserID,
			Name:                   recipe.Name,
			Description:            recipe.Description,
			IsPublic:               recipe.IsPublic,
			TargetVolume:           recipe.TargetVolume,
			BaseNicotineStrength:   recipe.BaseNicotineStrength,
			TargetNicotineStrength: recipe.TargetNicotineStrength,
			CalculatedAmounts:      recipe.CalculatedAmounts,
			Views:                  recipe.Views,
			Likes:                  recipe.Likes,
			AverageRating:          averages[recipe.ID],
			Ingredients:            make([]recipeIngredientResponse, 0, len(recipe.Ingredients)),
			CreatedAt:              recipe.CreatedAt,
			UpdatedAt:              recipe.UpdatedAt,
			CanEdit:                viewer != 0 && viewer == recipe.UserID,
		}
		if resp.CalculatedAmounts == nil {
			resp.CalculatedAmounts = map[string]float64{}
		}
		if recipe.User != nil {
			resp.Author = recipe.User.Name
		}
		for _, ingredient := range recipe.Ingredients {
			resp.Ingredients = append(resp.Ingredients, recipeIngredientResponse{
				ID:           ingredient.ID,
				Category:     ingredient.Category,
				Name:         ingredient.Name,
				Percentage:   ingredient.Percentage,
				IngredientID: ingredient.IngredientID,
			})
		}
		responses = append(responses, resp)
	}
	return responses, nil
}
