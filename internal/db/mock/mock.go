package mock

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vapex/internal/db"
	applog "vapex/internal/log"
	"vapex/internal/recipes"
	"vapex/internal/votes"
	"vapex/models"
)

// Password is shared by every seeded account.
const Password = "vapex"

// New returns an in-memory sqlite database seeded with a free and a premium
// account, their inventories, a handful of recipes and some votes.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := db.OpenSQLite("file:vapex-mock?mode=memory&cache=shared")
	if err != nil {
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	free := &models.User{Name: "Robin Free", Email: "free@vapex.app", PasswordHash: string(password)}
	premium := &models.User{Name: "Sam Premium", Email: "premium@vapex.app", PasswordHash: string(password), IsPremium: true}
	for _, user := range []*models.User{free, premium} {
		if err := database.WithContext(ctx).Create(user).Error; err != nil {
			return err
		}
	}

	strawberry := models.Ingredient{UserID: premium.ID, Category: models.CategoryAroma, Brand: "Capella", Name: "Strawberry", OptimalPercentage: float64Ptr(8), PGPercentage: 100}
	vanilla := models.Ingredient{UserID: premium.ID, Category: models.CategoryAroma, Brand: "TPA", Name: "Vanille Bourbon", OptimalPercentage: float64Ptr(3), PGPercentage: 100}
	shot := models.Ingredient{UserID: premium.ID, Category: models.CategoryNicotine, Brand: "Shotz", Name: "Nic Shot 20mg", NicotineStrength: float64Ptr(20), PGPercentage: 50, VGPercentage: 50}
	base := models.Ingredient{UserID: premium.ID, Category: models.CategoryBase, Name: "Base 50/50", PGPercentage: 50, VGPercentage: 50, Price: float64Ptr(12.9), Quantity: float64Ptr(1000)}
	menthol := models.Ingredient{UserID: free.ID, Category: models.CategoryAroma, Brand: "FA", Name: "Menthol", OptimalPercentage: float64Ptr(1.5), PGPercentage: 100}
	for _, ingredient := range []*models.Ingredient{&strawberry, &vanilla, &shot, &base, &menthol} {
		if err := database.WithContext(ctx).Create(ingredient).Error; err != nil {
			return err
		}
	}

	store := recipes.NewStore(database, recipes.Options{})
	premiumOwner := recipes.Owner{UserID: premium.ID, IsPremium: true}

	custard, err := store.Create(ctx, premiumOwner, recipes.CreateInput{
		Description:            "Strawberry on a vanilla custard.",
		TargetVolume:           100,
		BaseNicotineStrength:   20,
		TargetNicotineStrength: 3,
		Ingredients: []recipes.IngredientInput{
			{IngredientID: &strawberry.ID},
			{IngredientID: &vanilla.ID},
			{IngredientID: &shot.ID},
			{IngredientID: &base.ID},
		},
	})
	if err != nil {
		return err
	}

	if _, err := store.Create(ctx, premiumOwner, recipes.CreateInput{
		Name:         "Work in progress",
		IsPublic:     boolPtr(false),
		TargetVolume: 30,
		Ingredients:  []recipes.IngredientInput{{IngredientID: &vanilla.ID, Percentage: float64Ptr(6)}},
	}); err != nil {
		return err
	}

	ice, err := store.Create(ctx, recipes.Owner{UserID: free.ID}, recipes.CreateInput{
		Name:         "Ice",
		TargetVolume: 60,
		Ingredients:  []recipes.IngredientInput{{IngredientID: &menthol.ID}},
	})
	if err != nil {
		return err
	}

	ledger := votes.NewLedger(database)
	if _, err := ledger.ToggleLike(ctx, free.ID, custard.ID); err != nil {
		return err
	}
	if _, err := ledger.SetRating(ctx, free.ID, custard.ID, 5, "Tastes like summer."); err != nil {
		return err
	}
	if _, err := ledger.SetRating(ctx, premium.ID, ice.ID, 4, ""); err != nil {
		return err
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}

func float64Ptr(v float64) *float64 {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}
