package handlers

import (
	"net/http"

	"vapex/internal/ingredients"
	applog "vapex/internal/log"
)

const ingredientsPrefix = "/api/ingredients"

// IngredientResource serves the signed-in user's inventory.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	segments := pathSegments(r, ingredientsPrefix)
	switch {
	case len(segments) == 0:
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r, user.ID)
		case http.MethodPost:
			createIngredient(w, r, user.ID, user.IsPremium)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
		return
	case len(segments) == 1 && segments[0] == "suggestions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		suggestIngredients(w, r, user.ID)
		return
	case len(segments) > 1:
		http.NotFound(w, r)
		return
	}

	id, err := parseID(segments[0])
	if err != nil {
		applog.Debug(r.Context(), "invalid ingredient identifier", "identifier", segments[0], "error", err)
		writeJSONError(w, http.StatusNotFound, "ingredient not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := ingredientStore().Get(r.Context(), user.ID, id)
		if err != nil {
			writeError(w, r, err, "unable to load ingredient")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ingredient": item})
	case http.MethodPut, http.MethodPatch:
		var patch ingredients.Patch
		if err := decodeJSON(r, &patch, false); err != nil {
			writeError(w, r, err, "unable to update ingredient")
			return
		}
		item, err := ingredientStore().Update(r.Context(), user.ID, id, patch)
		if err != nil {
			writeError(w, r, err, "unable to update ingredient")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ingredient": item})
	case http.MethodDelete:
		if err := ingredientStore().Delete(r.Context(), user.ID, id); err != nil {
			writeError(w, r, err, "unable to delete ingredient")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "ingredient deleted"})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request, userID uint) {
	query := r.URL.Query()
	items, err := ingredientStore().List(r.Context(), userID, ingredients.Filter{
		Category: query.Get("category"),
		Search:   query.Get("search"),
		Brand:    query.Get("brand"),
	})
	if err != nil {
		writeError(w, r, err, "unable to load ingredients")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingredients": items})
}

func createIngredient(w http.ResponseWriter, r *http.Request, userID uint, premium bool) {
	var in ingredients.Input
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err, "unable to create ingredient")
		return
	}
	item, err := ingredientStore().Create(r.Context(), userID, premium, in)
	if err != nil {
		writeError(w, r, err, "unable to create ingredient")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ingredient": item})
}

func suggestIngredients(w http.ResponseWriter, r *http.Request, userID uint) {
	query := r.URL.Query()
	suggestions, err := ingredientStore().Suggestions(r.Context(), userID, query.Get("q"), query.Get("category"))
	if err != nil {
		writeError(w, r, err, "unable to load suggestions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}
