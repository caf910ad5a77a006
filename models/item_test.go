package models

import (
	"encoding/json"
	"testing"
)

func TestGalleryItemKey(t *testing.T) {
	a := &GalleryItem{DownloadID: "9001", DownloadURL: "https://galleryepic.com/en/download/cosplay/9001"}
	b := &GalleryItem{DownloadID: "9001", DownloadURL: "https://galleryepic.com/en/download/cosplay/9001", Page: 2}
	c := &GalleryItem{DownloadID: "9002", DownloadURL: "https://galleryepic.com/en/download/cosplay/9002"}

	if a.Key() != b.Key() {
		t.Error("expected identical keys for the same download regardless of page")
	}
	if a.Key() == c.Key() {
		t.Error("expected distinct keys for distinct downloads")
	}
}

func TestFallbackProfile(t *testing.T) {
	profile := FallbackProfile("1234", "https://galleryepic.com/en/coser/1234/1")

	if profile.Name != "Cosplayer 1234" {
		t.Errorf("unexpected name %q", profile.Name)
	}
	if profile.ProfileURL != "https://galleryepic.com/en/coser/1234/1" {
		t.Errorf("unexpected profile URL %q", profile.ProfileURL)
	}
	if profile.Links == nil || len(profile.Links) != 0 {
		t.Errorf("expected empty non-nil links, got %v", profile.Links)
	}

	// The fallback must serialize links as [], not null.
	data, err := json.Marshal(profile)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) == "" || !json.Valid(data) {
		t.Fatal("invalid JSON")
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := decoded["links"].([]any); !ok {
		t.Errorf("expected links serialized as array, got %v", decoded["links"])
	}
}
