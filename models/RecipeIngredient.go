package models

// RecipeIngredient is an immutable copy of an ingredient taken when the
// recipe was saved.
type RecipeIngredient struct {
	ID         uint     `gorm:"primarykey" json:"id"`
	RecipeID   uint     `gorm:"not null;index" json:"recipe_id"`
	Category   string   `gorm:"type:varchar(16);not null" json:"category"`
	Name       string   `gorm:"not null" json:"name"`
	Percentage *float64 `json:"percentage"`

	// IngredientID points back at the inventory item the snapshot was taken
	// from. It is informational only and may dangle after the item is deleted.
	IngredientID *uint `json:"ingredient_id,omitempty"`
}
