package models

import "time"

// Vote is the single ledger row a user holds for a recipe. IsLike is true
// when liked and nil when not; false is reserved for dislikes, which no
// operation produces.
type Vote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_votes_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_votes_user_recipe;index" json:"recipe_id"`
	IsLike    *bool     `json:"is_like"`
	Rating    *int      `json:"rating"`
	Comment   *string   `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Liked reports whether the vote currently carries a like.
func (v Vote) Liked() bool {
	return v.IsLike != nil && *v.IsLike
}
