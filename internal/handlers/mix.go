package handlers

import (
	"net/http"

	"vapex/internal/mixing"
)

type mixAroma struct {
	Name       string  `json:"name" validate:"required,max=200"`
	Percentage float64 `json:"percentage"`
}

type mixRequest struct {
	TargetVolume           float64    `json:"target_volume"`
	BaseNicotineStrength   float64    `json:"nicotine_base_strength"`
	TargetNicotineStrength float64    `json:"target_nicotine_strength"`
	NicotineName           string     `json:"nicotine_name" validate:"max=200"`
	BaseName               string     `json:"base_name" validate:"max=200"`
	Aromas                 []mixAroma `json:"aromas" validate:"max=50,dive"`
}

type mixResponse struct {
	CalculatedAmounts map[string]float64 `json:"calculated_amounts"`
	AromaVolume       float64            `json:"aroma_volume"`
	NicotineVolume    float64            `json:"nicotine_volume"`
	BaseVolume        float64            `json:"base_volume"`
}

// MixCalculate previews a mix without storing anything. Volumes are rounded
// to two decimals for display.
func MixCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload mixRequest
	if err := decodeAndValidate(r, &payload, false); err != nil {
		writeError(w, r, err, "unable to calculate mix")
		return
	}

	params := mixing.Params{
		TargetVolume:           payload.TargetVolume,
		BaseNicotineStrength:   payload.BaseNicotineStrength,
		TargetNicotineStrength: payload.TargetNicotineStrength,
		NicotineName:           payload.NicotineName,
		BaseName:               payload.BaseName,
	}
	for _, aroma := range payload.Aromas {
		params.Aromas = append(params.Aromas, mixing.Aroma{Name: aroma.Name, Percentage: aroma.Percentage})
	}

	result, err := mixing.Calculate(params)
	if err != nil {
		writeError(w, r, err, "unable to calculate mix")
		return
	}
	writeJSON(w, http.StatusOK, projectMix(result))
}

func projectMix(result mixing.Result) mixResponse {
	amounts := make(map[string]float64, len(result.Amounts))
	for name, volume := range result.Amounts {
		amounts[name] = mixing.Round(volume, 2)
	}
	return mixResponse{
		CalculatedAmounts: amounts,
		AromaVolume:       mixing.Round(result.AromaVolume, 2),
		NicotineVolume:    mixing.Round(result.NicotineVolume, 2),
		BaseVolume:        mixing.Round(result.BaseVolume, 2),
	}
}
