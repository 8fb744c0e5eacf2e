package leonardo

import (
	"leomedia/internal/template"
)

// RequestSpec is the fully-resolved parameter set for one generation request.
// Every recognized field is present: either a concrete value or an explicit
// nil, which serializes to JSON null the way the service expects. A spec is
// never partially resolved; it is only produced by RequestBuilder.Build.
type RequestSpec map[string]any

// photoRealV2Models is the fixed allow-list of model ids usable with
// photoReal v2: Leonardo Kino XL, Leonardo Diffusion XL, Leonardo Vision XL.
var photoRealV2Models = map[string]string{
	"Leonardo Kino XL":      "aa77f04e-3eec-4034-9c07-d0f619684628",
	"Leonardo Diffusion XL": "1e60896f-3c26-4296-8ecc-53e2afecc132",
	"Leonardo Vision XL":    "5c232a9e-9061-4777-980a-ddc8e65647c6",
}

// generationDefaults holds the documented default for every recognized
// generation field. Fields without a documented default map to nil and are
// sent as explicit nulls.
var generationDefaults = map[string]any{
	"prompt":                   nil,
	"modelId":                  nil,
	"num_images":               1,
	"width":                    1024,
	"height":                   1024,
	"alchemy":                  true,
	"photoReal":                true,
	"photoRealVersion":         "v2",
	"presetStyle":              "DYNAMIC",
	"guidance_scale":           7,
	"contrastRatio":            nil,
	"controlnets":              nil,
	"elements":                 nil,
	"expandedDomain":           false,
	"fantasyAvatar":            false,
	"highContrast":             false,
	"highResolution":           false,
	"imagePrompts":             nil,
	"imagePromptWeight":        nil,
	"init_generation_image_id": nil,
	"init_image_id":            nil,
	"init_strength":            nil,
	"negative_prompt":          nil,
	"num_inference_steps":      15,
	"photoRealStrength":        nil,
	"promptMagic":              false,
	"promptMagicStrength":      nil,
	"promptMagicVersion":       nil,
	"public":                   nil,
	"scheduler":                nil,
	"sd_version":               nil,
	"seed":                     nil,
	"tiling":                   nil,
	"transparency":             nil,
	"unzoom":                   nil,
	"unzoomAmount":             nil,
	"upscaleRatio":             nil,
}

// RequestBuilder resolves templates and overrides into canonical RequestSpecs.
// It holds the registry built at startup and performs no I/O of its own.
type RequestBuilder struct {
	templates *template.Registry
}

// NewRequestBuilder creates a builder backed by the given template registry.
// A nil registry is treated as empty.
func NewRequestBuilder(reg *template.Registry) *RequestBuilder {
	if reg == nil {
		reg = template.Empty()
	}
	return &RequestBuilder{templates: reg}
}

// Build merges the named template (optional, "" for none) with overrides
// into a total RequestSpec. Precedence per field: override, then template,
// then documented default, then explicit null.
//
// Cross-field rule: photoRealVersion "v2" requires modelId to be one of the
// photoReal v2 allow-list and forces alchemy to true as part of resolution.
// Violations fail before any network call.
func (b *RequestBuilder) Build(templateName string, overrides map[string]any) (RequestSpec, error) {
	spec := make(RequestSpec, len(generationDefaults))
	for field, def := range generationDefaults {
		spec[field] = def
	}

	if templateName != "" {
		tpl, ok := b.templates.Get(templateName)
		if !ok {
			return nil, validationErrorf("template %q not found", templateName)
		}
		if err := overlay(spec, tpl, "template "+templateName); err != nil {
			return nil, err
		}
	}

	if err := overlay(spec, overrides, "overrides"); err != nil {
		return nil, err
	}

	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// overlay applies src onto spec, rejecting unrecognized field names so a
// typo never silently drops a parameter.
func overlay(spec RequestSpec, src map[string]any, origin string) error {
	for field, value := range src {
		if _, known := generationDefaults[field]; !known {
			return validationErrorf("unknown field %q in %s", field, origin)
		}
		spec[field] = value
	}
	return nil
}

// validateSpec enforces cross-field constraints on a merged spec.
func validateSpec(spec RequestSpec) error {
	prompt, _ := spec["prompt"].(string)
	if prompt == "" {
		return validationErrorf("prompt must be provided")
	}

	if version, _ := spec["photoRealVersion"].(string); version == "v2" {
		modelID, _ := spec["modelId"].(string)
		if !isPhotoRealV2Model(modelID) {
			return validationErrorf("photoReal v2 requires a model id specified as either Leonardo Kino XL, Leonardo Diffusion XL, or Leonardo Vision XL")
		}
		// photoReal v2 implies Alchemy.
		spec["alchemy"] = true
	}

	return nil
}

// isPhotoRealV2Model reports whether id is in the photoReal v2 allow-list.
func isPhotoRealV2Model(id string) bool {
	for _, allowed := range photoRealV2Models {
		if id == allowed {
			return true
		}
	}
	return false
}
