// Package download saves remote job artifacts to a local directory.
// It is a thin collaborator around the core client: artifact URLs are
// fetched as-is and written byte for byte, with no media processing.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"leomedia/internal/leonardo"
)

// httpClient is the client used for artifact GETs. Artifact files can be
// large, so the timeout is generous compared to API calls.
var httpClient = &http.Client{Timeout: 5 * time.Minute}

// Artifacts downloads every artifact into dir, naming files {id}{ext}
// where ext comes from the artifact URL (default .jpg). The directory is
// created if needed. Per-file failures are logged and the first one is
// returned after the whole batch has been attempted.
func Artifacts(ctx context.Context, artifacts []leonardo.Artifact, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create save directory: %w", err)
	}

	var firstErr error
	for _, artifact := range artifacts {
		dest := filepath.Join(dir, artifact.ID+extensionOf(artifact.URL))
		if err := fetch(ctx, artifact.URL, dest); err != nil {
			log.Error().Err(err).Str("artifactId", artifact.ID).Str("url", artifact.URL).Msg("Failed to download artifact")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info().Str("artifactId", artifact.ID).Str("path", dest).Msg("Downloaded artifact")
	}
	return firstErr
}

// fetch GETs one URL into a local file.
func fetch(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return fmt.Errorf("write file: %w", err)
	}
	// Close errors matter here: buffered writes may only fail at close time.
	if err := file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// extensionOf derives a file extension from an artifact URL's path,
// falling back to .jpg when the URL carries none.
func extensionOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	if ext := path.Ext(parsed.Path); ext != "" {
		return ext
	}
	return ".jpg"
}
