package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"vapex/internal/apperr"
	applog "vapex/internal/log"
	"vapex/internal/mixing"
	"vapex/internal/recipes"
)

const (
	maxImportUploadSize         = 10 << 20
	defaultImportVolume         = 10.0
	defaultImportNicotineBase   = 20.0
	importFileField             = "file"
	importTextField             = "text"
	importTargetVolumeField     = "target_volume"
	importNicotineBaseField     = "nicotine_base_strength"
	importTargetNicotineField   = "target_nicotine_strength"
	importSkippedPreviewMaximum = 20
)

type importDraftResponse struct {
	Name                   string                    `json:"name"`
	TargetVolume           float64                   `json:"target_volume"`
	BaseNicotineStrength   float64                   `json:"nicotine_base_strength"`
	TargetNicotineStrength float64                   `json:"target_nicotine_strength"`
	Ingredients            []recipes.IngredientInput `json:"ingredients"`
	Preview                *mixResponse              `json:"preview"`
	Warnings               []string                  `json:"warnings"`
	Skipped                []string                  `json:"skipped"`
}

// ToolsImportRecipe turns an uploaded recipe sheet into an unsaved draft with
// a mixing preview. It accepts a multipart form with a file and/or text
// field, or a raw PDF or text body.
func ToolsImportRecipe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if _, ok := requireUser(w, r); !ok {
		return
	}

	text, err := readImportText(r)
	if err != nil {
		writeError(w, r, err, "unable to read recipe sheet")
		return
	}
	if strings.TrimSpace(text) == "" {
		writeJSONError(w, http.StatusBadRequest, "provide recipe text or upload a document")
		return
	}

	sheet := recipes.ParseSheet(text)
	if len(sheet.Aromas) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no aroma lines such as \"Strawberry 8%\" were found")
		return
	}

	draft := importDraftResponse{
		Name:                   sheet.Name,
		TargetVolume:           sheet.TargetVolume,
		TargetNicotineStrength: sheet.TargetNicotineStrength,
		BaseNicotineStrength:   defaultImportNicotineBase,
		Ingredients:            make([]recipes.IngredientInput, 0, len(sheet.Aromas)),
		Warnings:               []string{},
		Skipped:                sheet.Skipped,
	}
	if draft.Name == "" {
		draft.Name = recipes.GenerateName(sheet.Aromas)
	}
	if draft.TargetVolume <= 0 {
		draft.TargetVolume = defaultImportVolume
	}
	if err := applyImportOverrides(r, &draft); err != nil {
		writeError(w, r, err, "unable to read recipe sheet")
		return
	}
	if len(draft.Skipped) > importSkippedPreviewMaximum {
		draft.Skipped = draft.Skipped[:importSkippedPreviewMaximum]
	}

	params := mixing.Params{
		TargetVolume:           draft.TargetVolume,
		BaseNicotineStrength:   draft.BaseNicotineStrength,
		TargetNicotineStrength: draft.TargetNicotineStrength,
	}
	for _, aroma := range sheet.Aromas {
		draft.Ingredients = append(draft.Ingredients, recipes.IngredientInput{
			Category:   aroma.Category,
			Name:       aroma.Name,
			Percentage: aroma.Percentage,
		})
		params.Aromas = append(params.Aromas, mixing.Aroma{Name: aroma.Name, Percentage: *aroma.Percentage})
	}

	result, err := mixing.Calculate(params)
	switch {
	case err == nil:
		preview := projectMix(result)
		draft.Preview = &preview
	case errors.Is(err, apperr.ErrValidation):
		draft.Warnings = append(draft.Warnings, err.Error())
	default:
		writeError(w, r, err, "unable to calculate mix")
		return
	}

	applog.Debug(r.Context(), "recipe sheet imported", "aromas", len(draft.Ingredients), "skipped", len(sheet.Skipped))
	writeJSON(w, http.StatusOK, map[string]any{"draft": draft})
}

func readImportText(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readImportForm(r)
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read import body: %w", err)
	}
	if len(data) > maxImportUploadSize {
		return "", apperr.Validation("upload exceeds %d bytes", maxImportUploadSize)
	}
	return textFromUpload(data, mediaType)
}

func readImportForm(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxImportUploadSize); err != nil {
		return "", apperr.Validation("upload is too large or invalid")
	}

	text := strings.TrimSpace(r.FormValue(importTextField))

	file, header, err := r.FormFile(importFileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return text, nil
		}
		return "", apperr.Validation("unable to read the uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxImportUploadSize {
		return "", apperr.Validation("upload exceeds %d bytes", maxImportUploadSize)
	}

	contentType := header.Header.Get("Content-Type")
	if strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		contentType = "application/pdf"
	}
	extracted, err := textFromUpload(data, contentType)
	if err != nil {
		return "", err
	}
	if text != "" {
		return text + "\n" + extracted, nil
	}
	return extracted, nil
}

func textFromUpload(data []byte, contentType string) (string, error) {
	lower := strings.ToLower(contentType)
	if strings.Contains(lower, "pdf") || bytes.HasPrefix(data, []byte("%PDF-")) {
		text, err := extractTextFromPDF(data)
		if err != nil {
			return "", apperr.Validation("unable to read the PDF document")
		}
		return text, nil
	}
	return string(data), nil
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// applyImportOverrides lets the caller pin volume and strengths through
// query parameters or form fields.
func applyImportOverrides(r *http.Request, draft *importDraftResponse) error {
	fields := []struct {
		key    string
		target *float64
	}{
		{importTargetVolumeField, &draft.TargetVolume},
		{importNicotineBaseField, &draft.BaseNicotineStrength},
		{importTargetNicotineField, &draft.TargetNicotineStrength},
	}
	for _, field := range fields {
		raw := strings.TrimSpace(r.URL.Query().Get(field.key))
		if raw == "" && r.MultipartForm != nil {
			raw = strings.TrimSpace(r.FormValue(field.key))
		}
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return apperr.Validation("%s must be a number", field.key)
		}
		*field.target = value
	}
	return nil
}
