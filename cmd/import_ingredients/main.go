package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"vapex/internal/config"
	"vapex/internal/db"
	"vapex/internal/ingredients"
	applog "vapex/internal/log"
	"vapex/models"
)

var (
	numberPattern   = regexp.MustCompile(`[-+]?\d*[.,]?\d+`)
	cleanWhitespace = regexp.MustCompile(`\s+`)
)

func main() {
	csvPath := "ingredients.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	if err := run(context.Background(), csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, csvPath string) error {
	if strings.TrimSpace(csvPath) == "" {
		return fmt.Errorf("csv path must not be empty")
	}

	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	records, err := readCSV(file)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	owner, err := resolveImportOwner(ctx, database, os.Getenv("VAPEX_IMPORT_OWNER_EMAIL"))
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	store := ingredients.NewStore(database, ingredients.Options{FreeIngredientLimit: cfg.Limits.FreeIngredients})
	summary, err := importRecords(ctx, store, owner, records)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d and updated %d ingredients from %s\n", summary.created, summary.updated, filepath.Base(csvPath))
	return nil
}

type importSummary struct {
	created int
	updated int
}

// importRecords upserts each row into the owner's inventory, matching
// existing items by category and case-insensitive name.
func importRecords(ctx context.Context, store *ingredients.Store, owner models.User, records []map[string]string) (importSummary, error) {
	var summary importSummary

	existing, err := store.List(ctx, owner.ID, ingredients.Filter{})
	if err != nil {
		return summary, fmt.Errorf("list inventory: %w", err)
	}
	index := make(map[string]uint, len(existing))
	for _, item := range existing {
		index[inventoryKey(item.Category, item.Name)] = item.ID
	}

	for idx, record := range records {
		input, err := buildInput(record)
		if err != nil {
			return summary, fmt.Errorf("record %d (%s): %w", idx+1, record["Name"], err)
		}

		key := inventoryKey(input.Category, input.Name)
		if id, ok := index[key]; ok {
			if _, err := store.Update(ctx, owner.ID, id, patchFrom(input)); err != nil {
				return summary, fmt.Errorf("record %d (%s): %w", idx+1, input.Name, err)
			}
			summary.updated++
			continue
		}

		item, err := store.Create(ctx, owner.ID, owner.IsPremium, input)
		if err != nil {
			return summary, fmt.Errorf("record %d (%s): %w", idx+1, input.Name, err)
		}
		index[key] = item.ID
		summary.created++
	}

	applog.Info(ctx, "ingredient import finished", "owner", owner.ID, "created", summary.created, "updated", summary.updated)
	return summary, nil
}

func inventoryKey(category, name string) string {
	normalized, ok := models.NormalizeCategory(category)
	if !ok {
		normalized = strings.ToLower(strings.TrimSpace(category))
	}
	return normalized + "\x00" + strings.ToLower(strings.TrimSpace(name))
}

func resolveImportOwner(ctx context.Context, database *gorm.DB, email string) (models.User, error) {
	if database == nil {
		return models.User{}, fmt.Errorf("database handle is nil")
	}

	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		if err := database.WithContext(ctx).Where("lower(email) = ?", email).First(&user).Error; err != nil {
			return models.User{}, fmt.Errorf("find owner by email %q: %w", email, err)
		}
		return user, nil
	}

	if err := database.WithContext(ctx).Order("id asc").First(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("find default owner: %w", err)
	}
	return user, nil
}

func readCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) {
				continue
			}
			record[strings.TrimSpace(key)] = strings.TrimSpace(row[idx])
		}
		records = append(records, record)
	}

	return records, nil
}

func buildInput(row map[string]string) (ingredients.Input, error) {
	category := normalizeValue(row["Category"])
	if category == "" {
		category = models.CategoryAroma
	}

	input := ingredients.Input{
		Category:          category,
		Brand:             normalizeText(row["Brand"]),
		Name:              normalizeText(row["Name"]),
		Price:             parseOptionalNumber(row["Price"]),
		Quantity:          parseOptionalNumber(row["Quantity"]),
		OptimalPercentage: parseOptionalNumber(row["Optimal %"]),
		NicotineStrength:  parseOptionalNumber(row["Nicotine mg/ml"]),
	}
	if input.Name == "" {
		return input, errors.New("name is required")
	}
	if pg := parseOptionalNumber(row["PG"]); pg != nil {
		input.PGPercentage = *pg
	}
	if vg := parseOptionalNumber(row["VG"]); vg != nil {
		input.VGPercentage = *vg
	}
	if other := parseOptionalNumber(row["Other"]); other != nil {
		input.OtherPercentage = *other
	}
	return input, nil
}

func patchFrom(in ingredients.Input) ingredients.Patch {
	return ingredients.Patch{
		Brand:             &in.Brand,
		Price:             in.Price,
		Quantity:          in.Quantity,
		OptimalPercentage: in.OptimalPercentage,
		PGPercentage:      &in.PGPercentage,
		VGPercentage:      &in.VGPercentage,
		OtherPercentage:   &in.OtherPercentage,
		NicotineStrength:  in.NicotineStrength,
	}
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") || value == "-" {
		return ""
	}
	return value
}

func normalizeText(value string) string {
	value = normalizeValue(value)
	if value == "" {
		return value
	}
	return strings.TrimSpace(cleanWhitespace.ReplaceAllString(value, " "))
}

func parseOptionalNumber(value string) *float64 {
	value = normalizeValue(value)
	if value == "" {
		return nil
	}

	match := numberPattern.FindString(value)
	if match == "" {
		return nil
	}

	parsed, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &parsed
}
