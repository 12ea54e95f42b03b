package main

import (
	"context"
	"strings"
	"testing"

	"vapex/internal/db/dbtest"
	"vapex/internal/ingredients"
	"vapex/models"
)

const sampleCSV = `Category,Brand,Name,Price,Quantity,Optimal %,PG,VG,Other,Nicotine mg/ml
Aroma,Capella, Strawberry ,"4,90",10 ml,8%,100,0,0,
nikotin,Shotz,Nic Shot,0.99,10,,50,50,0,20 mg/ml
base,,Base 50/50,N/A,1000,,50,50,0,-
`

func TestReadCSVAndBuildInput(t *testing.T) {
	t.Parallel()

	records, err := readCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("readCSV returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	strawberry, err := buildInput(records[0])
	if err != nil {
		t.Fatalf("buildInput returned error: %v", err)
	}
	if strawberry.Name != "Strawberry" || strawberry.Brand != "Capella" {
		t.Fatalf("unexpected strawberry input: %+v", strawberry)
	}
	if strawberry.Price == nil || *strawberry.Price != 4.9 || strawberry.OptimalPercentage == nil || *strawberry.OptimalPercentage != 8 {
		t.Fatalf("expected parsed numbers, got price=%v optimal=%v", strawberry.Price, strawberry.OptimalPercentage)
	}
	if strawberry.NicotineStrength != nil {
		t.Fatalf("expected no nicotine strength, got %v", *strawberry.NicotineStrength)
	}

	base, err := buildInput(records[2])
	if err != nil {
		t.Fatalf("buildInput returned error: %v", err)
	}
	if base.Price != nil || base.NicotineStrength != nil || base.PGPercentage != 50 {
		t.Fatalf("unexpected base input: %+v", base)
	}

	if _, err := buildInput(map[string]string{"Category": "aroma"}); err == nil {
		t.Fatal("expected missing name to be rejected")
	}
	if _, err := readCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected empty csv to be rejected")
	}
}

func TestImportRecordsUpsertsInventory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := dbtest.Open(t)
	owner := models.User{Email: "importer@vapex.test", PasswordHash: "hash", IsPremium: true}
	if err := database.Create(&owner).Error; err != nil {
		t.Fatalf("create owner: %v", err)
	}
	store := ingredients.NewStore(database, ingredients.Options{})

	records, err := readCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("readCSV returned error: %v", err)
	}

	summary, err := importRecords(ctx, store, owner, records)
	if err != nil {
		t.Fatalf("first import returned error: %v", err)
	}
	if summary.created != 3 || summary.updated != 0 {
		t.Fatalf("unexpected first summary: %+v", summary)
	}

	records[0]["Price"] = "5.50"
	summary, err = importRecords(ctx, store, owner, records)
	if err != nil {
		t.Fatalf("second import returned error: %v", err)
	}
	if summary.created != 0 || summary.updated != 3 {
		t.Fatalf("unexpected second summary: %+v", summary)
	}

	items, err := store.List(ctx, owner.ID, ingredients.Filter{Search: "strawberry"})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(items) != 1 || items[0].Price == nil || *items[0].Price != 5.5 {
		t.Fatalf("expected updated strawberry, got %+v", items)
	}

	shots, err := store.List(ctx, owner.ID, ingredients.Filter{Category: "nicotine"})
	if err != nil {
		t.Fatalf("list nicotine: %v", err)
	}
	if len(shots) != 1 || shots[0].NicotineStrength == nil || *shots[0].NicotineStrength != 20 {
		t.Fatalf("expected nicotine shot with strength 20, got %+v", shots)
	}
}

func TestImportRecordsStopsAtFreeLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := dbtest.Open(t)
	owner := models.User{Email: "free-importer@vapex.test", PasswordHash: "hash"}
	if err := database.Create(&owner).Error; err != nil {
		t.Fatalf("create owner: %v", err)
	}
	store := ingredients.NewStore(database, ingredients.Options{FreeIngredientLimit: 2})

	records, err := readCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("readCSV returned error: %v", err)
	}
	summary, err := importRecords(ctx, store, owner, records)
	if err == nil {
		t.Fatal("expected the free limit to stop the import")
	}
	if summary.created != 2 {
		t.Fatalf("expected two items before the limit, got %+v", summary)
	}
}
