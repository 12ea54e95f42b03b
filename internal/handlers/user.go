package handlers

import (
	"net/http"
	"strings"

	"vapex/internal/apperr"
	applog "vapex/internal/log"
	"vapex/models"
)

type limitsResponse struct {
	Recipes     *int `json:"recipes"`
	Ingredients *int `json:"ingredients"`
}

type profileResponse struct {
	User            userResponse   `json:"user"`
	RecipeCount     int64          `json:"recipe_count"`
	IngredientCount int64          `json:"ingredient_count"`
	Limits          limitsResponse `json:"limits"`
}

// Profile describes the signed-in account, its usage and its quotas. Premium
// accounts report null limits.
func Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	recipeCount, err := recipeStore().CountByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err, "unable to load profile")
		return
	}
	ingredientCount, err := ingredientStore().CountByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err, "unable to load profile")
		return
	}

	resp := profileResponse{
		User:            projectUser(user),
		RecipeCount:     recipeCount,
		IngredientCount: ingredientCount,
	}
	if !user.IsPremium {
		recipeLimit := limitOr(options.FreeRecipeLimit, models.FreeRecipeLimit)
		ingredientLimit := ingredientStore().FreeLimit()
		resp.Limits = limitsResponse{Recipes: &recipeLimit, Ingredients: &ingredientLimit}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UserStats aggregates the signed-in user's recipes.
func UserStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, err := recipeStore().StatsForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err, "unable to load statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

type upgradeRequest struct {
	PaymentID string `json:"payment_id" validate:"required,max=128"`
}

// Upgrade marks the signed-in account as premium. Payment verification is
// simulated: any non-empty payment id is accepted.
func Upgrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !authAvailable(w) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload upgradeRequest
	if err := decodeAndValidate(r, &payload, false); err != nil {
		writeError(w, r, err, "upgrade failed")
		return
	}
	if strings.TrimSpace(payload.PaymentID) == "" {
		writeError(w, r, apperr.Validation("payment_id is required"), "upgrade failed")
		return
	}

	if !user.IsPremium {
		if err := database.WithContext(r.Context()).Model(user).Update("is_premium", true).Error; err != nil {
			writeError(w, r, err, "upgrade failed")
			return
		}
		user.IsPremium = true
	}
	if err := establishSession(r, user); err != nil {
		writeError(w, r, err, "unable to refresh session")
		return
	}

	applog.Info(r.Context(), "user upgraded to premium", "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "upgraded to premium",
		"user":    projectUser(user),
	})
}

func limitOr(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	return fallback
}
