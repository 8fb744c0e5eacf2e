package leonardo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"leomedia/internal/template"
)

// kinoXL is one of the photoReal v2 allow-listed model ids.
const kinoXL = "aa77f04e-3eec-4034-9c07-d0f619684628"

// newTestRegistry builds a registry around a single named template.
func newTestRegistry(t *testing.T, name string, params template.Params) *template.Registry {
	t.Helper()
	data, err := json.Marshal(map[string]template.Params{name: params})
	if err != nil {
		t.Fatalf("marshal template: %v", err)
	}
	path := filepath.Join(t.TempDir(), "templates.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write template file: %v", err)
	}
	reg, err := template.Load(path, true)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return reg
}

func TestBuildDefaults(t *testing.T) {
	builder := NewRequestBuilder(nil)
	spec, err := builder.Build("", map[string]any{"prompt": "a lighthouse", "modelId": kinoXL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if spec["num_images"] != 1 {
		t.Errorf("expected default num_images 1, got %v", spec["num_images"])
	}
	if spec["width"] != 1024 || spec["height"] != 1024 {
		t.Errorf("expected default 1024x1024, got %vx%v", spec["width"], spec["height"])
	}
	if spec["presetStyle"] != "DYNAMIC" {
		t.Errorf("expected default presetStyle DYNAMIC, got %v", spec["presetStyle"])
	}

	// Merge is total: every recognized field is present, unset ones as nil.
	if len(spec) != len(generationDefaults) {
		t.Errorf("expected %d fields in spec, got %d", len(generationDefaults), len(spec))
	}
	if v, ok := spec["seed"]; !ok || v != nil {
		t.Errorf("expected seed present and nil, got %v (present=%v)", v, ok)
	}
}

func TestBuildOverridePrecedence(t *testing.T) {
	reg := newTestRegistry(t, "portrait", template.Params{
		"width":   float64(768),
		"height":  float64(1024),
		"modelId": kinoXL,
		"seed":    float64(42),
		"tiling":  true,
		"alchemy": true,
	})
	builder := NewRequestBuilder(reg)

	spec, err := builder.Build("portrait", map[string]any{
		"prompt": "a lighthouse",
		"width":  512,
		"seed":   7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Override wins over template.
	if spec["width"] != 512 {
		t.Errorf("expected override width 512, got %v", spec["width"])
	}
	if spec["seed"] != 7 {
		t.Errorf("expected override seed 7, got %v", spec["seed"])
	}
	// Template wins over default.
	if spec["height"] != float64(1024) {
		t.Errorf("expected template height 1024, got %v", spec["height"])
	}
	if spec["tiling"] != true {
		t.Errorf("expected template tiling true, got %v", spec["tiling"])
	}
}

func TestBuildIdempotent(t *testing.T) {
	reg := newTestRegistry(t, "portrait", template.Params{
		"modelId": kinoXL,
		"width":   float64(768),
	})
	builder := NewRequestBuilder(reg)

	first, err := builder.Build("portrait", map[string]any{"prompt": "a lighthouse", "seed": 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-merging a resolved spec with no overrides must be a fixed point.
	second, err := builder.Build("", map[string]any(first))
	if err != nil {
		t.Fatalf("unexpected error on re-merge: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("merge not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestBuildUnknownTemplate(t *testing.T) {
	builder := NewRequestBuilder(nil)
	_, err := builder.Build("nope", map[string]any{"prompt": "a lighthouse"})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for unknown template, got %v", err)
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("expected template name in error, got %v", err)
	}
}

func TestBuildUnknownField(t *testing.T) {
	builder := NewRequestBuilder(nil)
	_, err := builder.Build("", map[string]any{"prompt": "x", "modelId": kinoXL, "wdith": 512})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}
}

func TestBuildPhotoRealV2RequiresAllowedModel(t *testing.T) {
	// A fake transport with a call counter proves validation fails before
	// any network activity.
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	builder := NewRequestBuilder(nil)
	_, err := builder.Build("", map[string]any{
		"prompt":  "a lighthouse",
		"modelId": "not-an-allowed-model",
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for photoReal v2 model, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected zero network calls, got %d", calls)
	}
}

func TestBuildPhotoRealV2ForcesAlchemy(t *testing.T) {
	builder := NewRequestBuilder(nil)
	spec, err := builder.Build("", map[string]any{
		"prompt":  "a lighthouse",
		"modelId": kinoXL,
		"alchemy": false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec["alchemy"] != true {
		t.Errorf("expected photoReal v2 to force alchemy true, got %v", spec["alchemy"])
	}
}

func TestBuildPhotoRealV1SkipsModelCheck(t *testing.T) {
	builder := NewRequestBuilder(nil)
	spec, err := builder.Build("", map[string]any{
		"prompt":           "a lighthouse",
		"photoRealVersion": "v1",
		"alchemy":          false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec["alchemy"] != false {
		t.Errorf("expected alchemy untouched for photoReal v1, got %v", spec["alchemy"])
	}
}

func TestBuildRequiresPrompt(t *testing.T) {
	builder := NewRequestBuilder(nil)
	_, err := builder.Build("", map[string]any{"modelId": kinoXL})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for missing prompt, got %v", err)
	}
}
