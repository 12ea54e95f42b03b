package models

import "gorm.io/gorm"

const (
	FreeRecipeLimit     = 3
	FreeIngredientLimit = 5
)

// User represents an application account that can authenticate with the platform.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	IsPremium    bool `gorm:"not null;default:false"`
}

// CanAddRecipe reports whether an account currently owning count recipes may
// store another one. Premium accounts are unlimited.
func (u User) CanAddRecipe(count int64, limit int) bool {
	return u.IsPremium || count < int64(limitOr(limit, FreeRecipeLimit))
}

// CanAddIngredient reports whether an account currently owning count
// ingredients may store another one.
func (u User) CanAddIngredient(count int64, limit int) bool {
	return u.IsPremium || count < int64(limitOr(limit, FreeIngredientLimit))
}

func limitOr(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	return fallback
}
