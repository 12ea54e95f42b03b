package recipes

import (
	"regexp"
	"strconv"
	"strings"

	"vapex/models"
)

var (
	sheetNamePattern     = regexp.MustCompile(`(?i)^(?:name|title|rezept)\s*:\s*(.+)$`)
	sheetNicotinePattern = regexp.MustCompile(`(?i)^(?:nicotine|nikotin)\b\D*?(\d+(?:[.,]\d+)?)\s*mg`)
	sheetVolumePattern   = regexp.MustCompile(`(?i)^(?:volume|menge|total|target)?\s*:?\s*(\d+(?:[.,]\d+)?)\s*ml\b`)
	sheetAromaPattern    = regexp.MustCompile(`^(.*?[^\s:\-–])\s*[:\-–]?\s*(\d+(?:[.,]\d+)?)\s*%$`)
)

// Sheet is a recipe draft read from free text.
type Sheet struct {
	Name                   string
	TargetVolume           float64
	TargetNicotineStrength float64
	Aromas                 []models.RecipeIngredient
	Skipped                []string
}

// ParseSheet reads a recipe sheet line by line. Lines such as
// "Strawberry 8%" become aroma snapshots; "Name: …", "Nicotine 3 mg/ml" and
// "100 ml" set the draft's name, strength and volume. Anything else is
// reported in Skipped.
func ParseSheet(text string) Sheet {
	var sheet Sheet
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.Trim(raw, "\r\t •*"))
		if line == "" {
			continue
		}

		if match := sheetNamePattern.FindStringSubmatch(line); match != nil {
			if sheet.Name == "" {
				sheet.Name = strings.TrimSpace(match[1])
			}
			continue
		}
		if match := sheetNicotinePattern.FindStringSubmatch(line); match != nil {
			if value, ok := parseSheetNumber(match[1]); ok {
				sheet.TargetNicotineStrength = value
				continue
			}
		}
		if match := sheetAromaPattern.FindStringSubmatch(line); match != nil {
			value, ok := parseSheetNumber(match[2])
			if ok && value > 0 {
				pct := value
				sheet.Aromas = append(sheet.Aromas, models.RecipeIngredient{
					Category:   models.CategoryAroma,
					Name:       strings.TrimSpace(match[1]),
					Percentage: &pct,
				})
				continue
			}
		}
		if match := sheetVolumePattern.FindStringSubmatch(line); match != nil {
			if value, ok := parseSheetNumber(match[1]); ok && value > 0 {
				sheet.TargetVolume = value
				continue
			}
		}
		sheet.Skipped = append(sheet.Skipped, line)
	}
	return sheet
}

func parseSheetNumber(value string) (float64, bool) {
	parsed, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
