package models

import "time"

// Recipe is a user's mix. Likes mirrors the vote ledger and CalculatedAmounts
// caches the mixing result; both are rewritten from their sources, never
// patched incrementally.
type Recipe struct {
	ID                     uint               `gorm:"primarykey" json:"id"`
	UserID                 uint               `gorm:"not null;index" json:"user_id"`
	User                   *User              `gorm:"foreignKey:UserID" json:"-"`
	Name                   string             `gorm:"not null;index" json:"name"`
	Description            string             `gorm:"type:text" json:"description"`
	IsPublic               bool               `gorm:"not null;index" json:"is_public"`
	TargetVolume           float64            `gorm:"not null" json:"target_volume"`
	BaseNicotineStrength   float64            `gorm:"not null" json:"nicotine_base_strength"`
	TargetNicotineStrength float64            `gorm:"not null" json:"target_nicotine_strength"`
	CalculatedAmounts      map[string]float64 `gorm:"serializer:json;type:text" json:"calculated_amounts"`
	Views                  int64              `gorm:"not null;default:0" json:"views"`
	Likes                  int64              `gorm:"not null;default:0" json:"likes"`
	Ingredients            []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
	CreatedAt              time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// AromaNames lists the aroma snapshots in recipe order.
func (r Recipe) AromaNames() []string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ingredient := range r.Ingredients {
		if ingredient.Category == CategoryAroma {
			names = append(names, ingredient.Name)
		}
	}
	return names
}
