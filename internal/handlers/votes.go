package handlers

import (
	"net/http"
	"time"

	applog "vapex/internal/log"
	"vapex/models"
)

const votesPrefix = "/api/votes"

type voteResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Author    string    `json:"author,omitempty"`
	RecipeID  uint      `json:"recipe_id"`
	IsLike    *bool     `json:"is_like"`
	Rating    *int      `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func projectVote(vote models.Vote, author string) voteResponse {
	return voteResponse{
		ID:        vote.ID,
		UserID:    vote.UserID,
		Author:    author,
		RecipeID:  vote.RecipeID,
		IsLike:    vote.IsLike,
		Rating:    vote.Rating,
		Comment:   vote.Comment,
		CreatedAt: vote.CreatedAt,
		UpdatedAt: vote.UpdatedAt,
	}
}

// VoteResource serves DELETE /api/votes/{id}.
func VoteResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	segments := pathSegments(r, votesPrefix)
	if len(segments) != 1 {
		writeJSONError(w, http.StatusNotFound, "vote not found")
		return
	}
	id, err := parseID(segments[0])
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "vote not found")
		return
	}

	recipeID, err := voteLedger().Delete(r.Context(), user.ID, id)
	if err != nil {
		writeError(w, r, err, "unable to delete vote")
		return
	}
	options.Metrics.VoteEvent("deleted")
	applog.Debug(r.Context(), "vote deleted", "vote", id, "recipe", recipeID, "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "vote deleted", "recipe_id": recipeID})
}

func toggleRecipeLike(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	result, err := voteLedger().ToggleLike(r.Context(), user.ID, id)
	if err != nil {
		writeError(w, r, err, "unable to update like")
		return
	}
	if result.Liked {
		options.Metrics.VoteEvent("liked")
	} else {
		options.Metrics.VoteEvent("unliked")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"liked":       result.Liked,
		"total_likes": result.TotalLikes,
		"vote":        projectVote(result.Vote, ""),
	})
}

func rateRecipe(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var payload ratingRequest
	if err := decodeAndValidate(r, &payload, false); err != nil {
		writeError(w, r, err, "unable to save rating")
		return
	}
	result, err := voteLedger().SetRating(r.Context(), user.ID, id, payload.Rating, payload.Comment)
	if err != nil {
		writeError(w, r, err, "unable to save rating")
		return
	}
	options.Metrics.VoteEvent("rated")
	writeJSON(w, http.StatusOK, map[string]any{
		"vote":           projectVote(result.Vote, user.Name),
		"average_rating": result.AverageRating,
	})
}

func listRecipeVotes(w http.ResponseWriter, r *http.Request, id uint) {
	recipe, err := recipeStore().Get(r.Context(), viewerID(r), id)
	if err != nil {
		writeError(w, r, err, "unable to load votes")
		return
	}
	reviews, err := voteLedger().Reviews(r.Context(), recipe.ID)
	if err != nil {
		writeError(w, r, err, "unable to load votes")
		return
	}

	userIDs := make([]uint, 0, len(reviews))
	for _, vote := range reviews {
		userIDs = append(userIDs, vote.UserID)
	}
	names := map[uint]string{}
	if len(userIDs) > 0 {
		var users []models.User
		if err := database.WithContext(r.Context()).Select("id", "name").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			writeError(w, r, err, "unable to load votes")
			return
		}
		for _, u := range users {
			names[u.ID] = u.Name
		}
	}

	responses := make([]voteResponse, 0, len(reviews))
	for _, vote := range reviews {
		responses = append(responses, projectVote(vote, names[vote.UserID]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"votes": responses})
}

func showMyVote(w http.ResponseWriter, r *http.Request, id uint) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	vote, err := voteLedger().Find(r.Context(), user.ID, id)
	if err != nil {
		writeError(w, r, err, "unable to load vote")
		return
	}
	if vote == nil {
		writeJSON(w, http.StatusOK, map[string]any{"vote": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vote": projectVote(*vote, user.Name)})
}
