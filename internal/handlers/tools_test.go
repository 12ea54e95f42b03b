package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMixCalculate(t *testing.T) {
	setupHandlers(t)

	rec := serve(MixCalculate, jsonRequest(t, http.MethodPost, "/api/mix/calculate", map[string]any{
		"target_volume":            30,
		"nicotine_base_strength":   20,
		"target_nicotine_strength": 3,
		"nicotine_name":            "Shot",
		"aromas": []map[string]any{
			{"name": "Strawberry", "percentage": 7},
			{"name": "Strawberry", "percentage": 1},
		},
	}))
	expectStatus(t, rec, http.StatusOK)

	body := decodeResponse[mixResponse](t, rec)
	want := map[string]float64{"Strawberry": 2.4, "Shot": 4.5, "Base": 23.1}
	for name, volume := range want {
		if got := body.CalculatedAmounts[name]; got != volume {
			t.Fatalf("expected %s = %v, got %v", name, volume, body.CalculatedAmounts)
		}
	}
	if body.AromaVolume != 2.4 || body.NicotineVolume != 4.5 || body.BaseVolume != 23.1 {
		t.Fatalf("unexpected totals: %+v", body)
	}
}

func TestMixCalculateRejectsInvalidInput(t *testing.T) {
	setupHandlers(t)

	cases := map[string]map[string]any{
		"zero volume":         {"target_volume": 0},
		"target over base":    {"target_volume": 10, "nicotine_base_strength": 3, "target_nicotine_strength": 6},
		"aromas over 100":     {"target_volume": 10, "aromas": []map[string]any{{"name": "A", "percentage": 101}}},
		"nameless aroma":      {"target_volume": 10, "aromas": []map[string]any{{"percentage": 5}}},
		"wrong type for size": {"target_volume": "ten"},
	}
	for name, payload := range cases {
		rec := serve(MixCalculate, jsonRequest(t, http.MethodPost, "/api/mix/calculate", payload))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", name, rec.Code, rec.Body.String())
		}
	}
}

type importEnvelope struct {
	Draft importDraftResponse `json:"draft"`
}

func TestImportRecipeFromText(t *testing.T) {
	sm, db := setupHandlers(t)
	user := createTestUser(t, db, "Mia", false)

	sheet := "Name: Summer\n100 ml\nNicotine 3 mg\nStrawberry 8%\nVanille 2%\nShake well\n"
	req := httptest.NewRequest(http.MethodPost, "/api/tools/import-recipe", strings.NewReader(sheet))
	req.Header.Set("Content-Type", "text/plain")
	req = authenticateRequest(t, sm, req, user.ID)

	rec := serve(ToolsImportRecipe, req)
	expectStatus(t, rec, http.StatusOK)
	draft := decodeResponse[importEnvelope](t, rec).Draft

	if draft.Name != "Summer" || draft.TargetVolume != 100 || draft.TargetNicotineStrength != 3 {
		t.Fatalf("unexpected draft header: %+v", draft)
	}
	if len(draft.Ingredients) != 2 || draft.Ingredients[1].Name != "Vanille" {
		t.Fatalf("unexpected ingredients: %+v", draft.Ingredients)
	}
	if draft.Preview == nil || draft.Preview.AromaVolume != 10 || draft.Preview.NicotineVolume != 15 {
		t.Fatalf("unexpected preview: %+v", draft.Preview)
	}
	if len(draft.Skipped) != 1 || draft.Skipped[0] != "Shake well" {
		t.Fatalf("unexpected skipped lines: %v", draft.Skipped)
	}
}

func TestImportRecipeFromMultipartWithOverrides(t *testing.T) {
	sm, db := setupHandlers(t)
	user := createTestUser(t, db, "Mia", false)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(importFileField, "sheet.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("Menthol 60%\nIce 50%\n")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.WriteField(importTargetVolumeField, "50"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tools/import-recipe", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = authenticateRequest(t, sm, req, user.ID)

	rec := serve(ToolsImportRecipe, req)
	expectStatus(t, rec, http.StatusOK)
	draft := decodeResponse[importEnvelope](t, rec).Draft

	if draft.Name != "Menthol & Ice" || draft.TargetVolume != 50 {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if draft.Preview != nil || len(draft.Warnings) != 1 {
		t.Fatalf("expected a warning instead of a preview for 110%% aroma: %+v", draft)
	}
}

func TestImportRecipeRejectsEmptyInput(t *testing.T) {
	sm, db := setupHandlers(t)
	user := createTestUser(t, db, "Mia", false)

	for name, text := range map[string]string{
		"blank":     "  \n ",
		"no aromas": "Just some notes\nwithout shares",
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/tools/import-recipe", strings.NewReader(text))
		req.Header.Set("Content-Type", "text/plain")
		rec := serve(ToolsImportRecipe, authenticateRequest(t, sm, req, user.ID))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tools/import-recipe", strings.NewReader("%PDF-1.4 broken"))
	req.Header.Set("Content-Type", "application/pdf")
	rec := serve(ToolsImportRecipe, authenticateRequest(t, sm, req, user.ID))
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestCatalogPageRendersPublicRecipes(t *testing.T) {
	sm, db := setupHandlers(t)
	premium := createTestUser(t, db, "Premium", true)

	hidden := false
	createRecipeAs(t, sm, premium, recipePayload("Secret Custard", &hidden, "Vanille", 5))
	createRecipeAs(t, sm, premium, recipePayload("Open Custard", nil, "Vanille", 5))

	rec := serve(CatalogPage, httptest.NewRequest(http.MethodGet, "/catalog?q=custard&page=zero", nil))
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html, got %q", ct)
	}
	out := rec.Body.String()
	if !strings.Contains(out, "Open Custard") || strings.Contains(out, "Secret Custard") {
		t.Fatalf("expected only the public recipe: %s", out)
	}
	if !strings.Contains(out, "by Premium") {
		t.Fatalf("expected author in card: %s", out)
	}
	if !strings.Contains(out, ">Vanille</p>") {
		t.Fatalf("expected aroma names in card: %s", out)
	}
}

func TestHealth(t *testing.T) {
	setupHandlers(t)

	rec := serve(Health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	expectStatus(t, rec, http.StatusOK)
	if body := decodeResponse[healthResponse](t, rec); body.Status != "ok" || body.Database != "ok" {
		t.Fatalf("unexpected health: %+v", body)
	}

	origDB := database
	database = nil
	t.Cleanup(func() { database = origDB })

	rec = serve(Health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	expectStatus(t, rec, http.StatusServiceUnavailable)
	if body := decodeResponse[healthResponse](t, rec); body.Status != "degraded" {
		t.Fatalf("expected degraded status, got %+v", body)
	}
}
