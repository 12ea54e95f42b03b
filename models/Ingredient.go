package models

import (
	"strings"
	"time"
)

const (
	CategoryAroma    = "aroma"
	CategoryBase     = "base"
	CategoryNicotine = "nicotine"
)

// Ingredient is a stock item in a user's inventory. Recipes copy the fields
// they need instead of referencing it.
type Ingredient struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	Category          string    `gorm:"type:varchar(16);not null" json:"category"`
	Brand             string    `json:"brand"`
	Name              string    `gorm:"not null" json:"name"`
	Price             *float64  `json:"price"`
	Quantity          *float64  `json:"quantity"`
	OptimalPercentage *float64  `json:"optimal_percentage"`
	PGPercentage      float64   `gorm:"not null;default:0" json:"pg_percentage"`
	VGPercentage      float64   `gorm:"not null;default:0" json:"vg_percentage"`
	OtherPercentage   float64   `gorm:"not null;default:0" json:"other_percentage"`
	NicotineStrength  *float64  `json:"nicotine_strength"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NormalizeCategory maps user input onto a known category. The German
// "nikotin" spelling used by older clients is accepted as nicotine.
func NormalizeCategory(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case CategoryAroma:
		return CategoryAroma, true
	case CategoryBase:
		return CategoryBase, true
	case CategoryNicotine, "nikotin":
		return CategoryNicotine, true
	default:
		return "", false
	}
}
