package leonardo

// JobKind identifies which asynchronous job family a handle belongs to.
// Each kind has its own status endpoint and response shape (see shape.go).
type JobKind int

const (
	JobGeneration JobKind = iota
	JobUpscale
	JobMotion
	JobUnzoom
)

// String returns the kind's name for logs and CLI output.
func (k JobKind) String() string {
	switch k {
	case JobGeneration:
		return "generation"
	case JobUpscale:
		return "upscale"
	case JobMotion:
		return "motion"
	case JobUnzoom:
		return "unzoom"
	default:
		return "unknown"
	}
}

// JobHandle identifies one submitted job. It is only constructed by the
// submission methods, which guarantee a non-empty ID.
type JobHandle struct {
	ID   string
	Kind JobKind
}

// Artifact is one output of a completed job: an image or video reference.
// Extra carries any kind-specific metadata the service attached (nsfw flags,
// like counts, motion URLs, …) beyond the id and url.
type Artifact struct {
	ID    string
	URL   string
	Extra map[string]any
}

// JobResult is the terminal outcome of a successfully completed job.
// Failed and timed-out jobs surface as errors, never as a JobResult.
type JobResult struct {
	Handle    JobHandle
	Artifacts []Artifact
}

// jobStatus is the uniform signal a shape adapter distills from a raw
// status payload.
type jobStatus int

const (
	statusPending jobStatus = iota
	statusComplete
	statusFailed
)
