package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"leomedia/internal/leonardo"
)

func TestArtifacts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.jpg":
			fmt.Fprint(w, "jpeg bytes")
		case "/clip.mp4":
			fmt.Fprint(w, "mp4 bytes")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "out")
	artifacts := []leonardo.Artifact{
		{ID: "img-1", URL: server.URL + "/a.jpg"},
		{ID: "mot-1", URL: server.URL + "/clip.mp4"},
	}

	if err := Artifacts(context.Background(), artifacts, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "img-1.jpg"))
	if err != nil {
		t.Fatalf("read downloaded image: %v", err)
	}
	if string(got) != "jpeg bytes" {
		t.Errorf("unexpected image content: %q", got)
	}

	if _, err := os.Stat(filepath.Join(dir, "mot-1.mp4")); err != nil {
		t.Errorf("expected motion artifact saved with .mp4 extension: %v", err)
	}
}

func TestArtifactsContinuesAfterFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "jpeg bytes")
	}))
	defer server.Close()

	dir := t.TempDir()
	artifacts := []leonardo.Artifact{
		{ID: "bad", URL: server.URL + "/bad.jpg"},
		{ID: "good", URL: server.URL + "/good.jpg"},
	}

	err := Artifacts(context.Background(), artifacts, dir)
	if err == nil {
		t.Fatal("expected the failed download to be reported")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "good.jpg")); statErr != nil {
		t.Errorf("expected later artifacts still downloaded: %v", statErr)
	}
}

func TestExtensionOf(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"http://x/1.jpg", ".jpg"},
		{"http://x/clip.mp4", ".mp4"},
		{"http://x/noext", ".jpg"},
		{"http://x/a.png?sig=abc", ".png"},
	}
	for _, tc := range cases {
		if got := extensionOf(tc.url); got != tc.want {
			t.Errorf("extensionOf(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
