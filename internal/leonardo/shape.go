package leonardo

import (
	"encoding/json"
)

// shapeAdapter interprets one job kind's status payload. The service nests
// status flags and artifact lists differently per endpoint, so each kind
// gets its own adapter instead of one speculative lookup chain. Adding a
// job kind means adding an adapter, not branching the poller.
type shapeAdapter interface {
	// statusPath is the endpoint segment the job id is appended to.
	statusPath() string
	// extractStatus distills the raw payload into a uniform pending/
	// complete/failed signal. A parse error is transient to the poller.
	extractStatus(body []byte) (jobStatus, error)
	// extractArtifacts pulls the artifact list out of a terminal payload.
	// Structurally absent keys yield a shape-kind error.
	extractArtifacts(body []byte) ([]Artifact, error)
}

// adapterFor selects the shape adapter for a job kind.
func adapterFor(kind JobKind) shapeAdapter {
	switch kind {
	case JobGeneration:
		return generationShape{}
	case JobMotion:
		return motionShape{}
	default:
		// Upscale and unzoom are both variation jobs with identical shapes.
		return variationShape{}
	}
}

// parseStatus maps the service's status strings onto the uniform signal.
// Anything that is not explicitly terminal counts as pending.
func parseStatus(s string) jobStatus {
	switch s {
	case "COMPLETE":
		return statusComplete
	case "FAILED":
		return statusFailed
	default:
		return statusPending
	}
}

// artifactFromRecord builds an Artifact from one raw result record,
// lifting id and the given url key out and keeping the rest as metadata.
func artifactFromRecord(record map[string]any, urlKey string) Artifact {
	a := Artifact{Extra: map[string]any{}}
	for k, v := range record {
		switch k {
		case "id":
			a.ID, _ = v.(string)
		case urlKey:
			a.URL, _ = v.(string)
		default:
			a.Extra[k] = v
		}
	}
	return a
}

// --- Generation jobs ---
//
// GET generations/{id} responds with the record nested under
// generations_by_pk; its status field and generated_images list live there.

type generationShape struct{}

type generationEnvelope struct {
	GenerationsByPK *struct {
		Status          string           `json:"status"`
		GeneratedImages []map[string]any `json:"generated_images"`
	} `json:"generations_by_pk"`
}

func (generationShape) statusPath() string { return "generations" }

func (generationShape) extractStatus(body []byte) (jobStatus, error) {
	var env generationEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return statusPending, err
	}
	if env.GenerationsByPK == nil {
		// Generation not visible yet; treated as pending, not absent.
		return statusPending, nil
	}
	return parseStatus(env.GenerationsByPK.Status), nil
}

func (generationShape) extractArtifacts(body []byte) ([]Artifact, error) {
	var env struct {
		GenerationsByPK map[string]json.RawMessage `json:"generations_by_pk"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, shapeErrorf("parse generation payload: %v", err)
	}
	if env.GenerationsByPK == nil {
		return nil, shapeErrorf("generation payload missing generations_by_pk")
	}
	rawImages, ok := env.GenerationsByPK["generated_images"]
	if !ok {
		return nil, shapeErrorf("generation payload missing generated_images")
	}
	var records []map[string]any
	if err := json.Unmarshal(rawImages, &records); err != nil {
		return nil, shapeErrorf("parse generated_images: %v", err)
	}

	artifacts := make([]Artifact, 0, len(records))
	for _, record := range records {
		artifacts = append(artifacts, artifactFromRecord(record, "url"))
	}
	return artifacts, nil
}

// --- Variation jobs (upscale, unzoom) ---
//
// GET variations/{id} responds with a generated_image_variation_generic
// array; the first entry carries the job status and the result url.

type variationShape struct{}

type variationEnvelope struct {
	Variations []map[string]any `json:"generated_image_variation_generic"`
}

func (variationShape) statusPath() string { return "variations" }

func (variationShape) extractStatus(body []byte) (jobStatus, error) {
	return variationStatus(body)
}

func (variationShape) extractArtifacts(body []byte) ([]Artifact, error) {
	return variationArtifacts(body, "url")
}

// --- Motion jobs ---
//
// Motion jobs share the variation envelope but live under
// generations-motion-svd and carry the result at motionMP4URL.

type motionShape struct{}

func (motionShape) statusPath() string { return "generations-motion-svd" }

func (motionShape) extractStatus(body []byte) (jobStatus, error) {
	return variationStatus(body)
}

func (motionShape) extractArtifacts(body []byte) ([]Artifact, error) {
	return variationArtifacts(body, "motionMP4URL")
}

// variationStatus reads the status flag shared by variation-style payloads.
func variationStatus(body []byte) (jobStatus, error) {
	var env variationEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return statusPending, err
	}
	if len(env.Variations) == 0 {
		return statusPending, nil
	}
	status, _ := env.Variations[0]["status"].(string)
	return parseStatus(status), nil
}

// variationArtifacts extracts artifacts from a variation-style payload,
// taking the result url from urlKey.
func variationArtifacts(body []byte, urlKey string) ([]Artifact, error) {
	var env variationEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, shapeErrorf("parse variation payload: %v", err)
	}
	if len(env.Variations) == 0 {
		return nil, shapeErrorf("variation payload missing generated_image_variation_generic")
	}

	artifacts := make([]Artifact, 0, len(env.Variations))
	for _, record := range env.Variations {
		artifact := artifactFromRecord(record, urlKey)
		if artifact.URL == "" {
			return nil, shapeErrorf("variation record missing %s", urlKey)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}
