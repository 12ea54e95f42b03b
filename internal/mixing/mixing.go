// Package mixing derives per-component volumes for an e-liquid batch from
// aroma percentages, the target volume and the nicotine dilution.
package mixing

import (
	"fmt"
	"math"
	"strings"

	"vapex/internal/apperr"
)

const (
	DefaultNicotineName = "Nicotine Base"
	DefaultBaseName     = "Base"

	// tolerance absorbs float noise when aroma percentages sum to exactly 100.
	tolerance = 1e-9
)

// Aroma is a flavour component dosed as a percentage of the final volume.
type Aroma struct {
	Name       string
	Percentage float64
}

// Params describes a batch to mix.
type Params struct {
	TargetVolume           float64
	BaseNicotineStrength   float64
	TargetNicotineStrength float64
	Aromas                 []Aroma

	// NicotineName and BaseName label the nicotine shot and the neutral
	// filler in the result. Defaults apply when blank.
	NicotineName string
	BaseName     string
}

// Result holds the computed volumes in millilitres.
type Result struct {
	Amounts        map[string]float64
	AromaVolume    float64
	NicotineVolume float64
	BaseVolume     float64
}

// InvalidMixError reports parameters that cannot produce a batch. It matches
// apperr.ErrValidation.
type InvalidMixError struct {
	Reason string
}

func (e *InvalidMixError) Error() string {
	return "invalid mix: " + e.Reason
}

func (e *InvalidMixError) Is(target error) bool {
	return target == apperr.ErrValidation
}

func invalid(format string, args ...any) error {
	return &InvalidMixError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the batch parameters without computing amounts.
func Validate(p Params) error {
	if !(p.TargetVolume > 0) || math.IsInf(p.TargetVolume, 0) {
		return invalid("target volume must be greater than zero")
	}
	if p.BaseNicotineStrength < 0 || p.TargetNicotineStrength < 0 {
		return invalid("nicotine strengths must not be negative")
	}
	if p.TargetNicotineStrength > p.BaseNicotineStrength {
		return invalid("target nicotine strength %.2f mg/ml exceeds base strength %.2f mg/ml",
			p.TargetNicotineStrength, p.BaseNicotineStrength)
	}

	total := 0.0
	for _, aroma := range p.Aromas {
		if aroma.Percentage < 0 || aroma.Percentage > 100 || math.IsNaN(aroma.Percentage) {
			return invalid("percentage for %q must be between 0 and 100", aroma.Name)
		}
		total += aroma.Percentage
	}
	if total > 100+tolerance {
		return invalid("aroma percentages add up to %.2f%%, more than 100%%", total)
	}
	return nil
}

// Calculate computes the volume of every component. Aromas sharing a name are
// summed into one entry.
func Calculate(p Params) (Result, error) {
	if err := Validate(p); err != nil {
		return Result{}, err
	}

	result := Result{Amounts: make(map[string]float64, len(p.Aromas)+2)}

	for _, aroma := range p.Aromas {
		volume := p.TargetVolume * aroma.Percentage / 100
		result.Amounts[labelOr(aroma.Name, "Aroma")] += volume
		result.AromaVolume += volume
	}

	if p.TargetNicotineStrength > 0 {
		result.NicotineVolume = p.TargetVolume * p.TargetNicotineStrength / p.BaseNicotineStrength
	}
	if result.AromaVolume+result.NicotineVolume > p.TargetVolume*(1+tolerance) {
		return Result{}, invalid("aromas (%.2f ml) and nicotine shot (%.2f ml) exceed the target volume of %.2f ml",
			result.AromaVolume, result.NicotineVolume, p.TargetVolume)
	}
	if result.NicotineVolume > 0 {
		result.Amounts[labelOr(p.NicotineName, DefaultNicotineName)] += result.NicotineVolume
	}

	result.BaseVolume = math.Max(0, p.TargetVolume-result.AromaVolume-result.NicotineVolume)
	result.Amounts[labelOr(p.BaseName, DefaultBaseName)] += result.BaseVolume

	return result, nil
}

// Round trims v to the given number of decimals for presentation.
func Round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

func labelOr(name, fallback string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fallback
}
