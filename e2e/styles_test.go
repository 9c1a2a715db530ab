package e2e

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"
)

var testJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

func stylesBody(gender string) string {
	return fmt.Sprintf(`{"photo":%q,"gender":%q}`,
		base64.StdEncoding.EncodeToString(testJPEG), gender)
}

func TestStylesGenerate_Success(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/styles/generate", stylesBody("female"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	styles, ok := result["styles"].([]interface{})
	if !ok {
		t.Fatal("expected 'styles' to be an array")
	}
	if len(styles) != 3 {
		t.Errorf("expected 3 styles, got %d", len(styles))
	}

	for i, s := range styles {
		style, ok := s.(map[string]interface{})
		if !ok {
			t.Fatalf("styles[%d] is not an object", i)
		}
		for _, field := range []string{"id", "title", "description", "imageUrl"} {
			if v, _ := style[field].(string); v == "" {
				t.Errorf("styles[%d]: expected non-empty %q", i, field)
			}
		}
	}
}

func TestStylesGenerate_EachGender(t *testing.T) {
	ta := setupApp(t)

	for _, gender := range []string{"male", "female", "neutral"} {
		resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/styles/generate", stylesBody(gender))
		if err != nil {
			t.Fatalf("request failed for %s: %v", gender, err)
		}
		assertStatus(t, resp, http.StatusOK)
		readBody(t, resp)
	}
}

func TestStylesGenerate_InvalidGender(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/styles/generate", stylesBody("other"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestStylesGenerate_InvalidPhoto(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/styles/generate",
		`{"photo":"!!not-base64!!","gender":"female"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)

	result := parseJSON(t, resp)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected 'error' object")
	}
	if errObj["code"] != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", errObj["code"])
	}
}

func TestStylesGenerate_NoAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/styles/generate", stylesBody("female"), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestStylesGet_Roundtrip(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/styles/generate", stylesBody("male"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	styles := result["styles"].([]interface{})
	styleID := styles[0].(map[string]interface{})["id"].(string)

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/styles/"+styleID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	detail := parseJSON(t, resp)
	if detail["id"] != styleID {
		t.Errorf("expected id %s, got %v", styleID, detail["id"])
	}
	if v, _ := detail["rawDescription"].(string); v == "" {
		t.Error("expected non-empty rawDescription in detail view")
	}
}

func TestStylesGet_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/styles/does-not-exist", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}
