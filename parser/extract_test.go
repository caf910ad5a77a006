package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const testBaseURL = "https://galleryepic.com"

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

const listingHTML = `<html><head><title>Mimi - GalleryEpic</title></head><body>
<h4 class="scroll-m-20">Mimi</h4>
<div class="space-y-3 relative">
  <a href="/en/cosplay/9001"><img src="/thumbs/9001.jpg"/><h3>Sailor Moon</h3></a>
  <p class="text-muted-foreground">Sailor Moon Series</p>
  <p>45P 2V</p>
  <a href="/en/download/cosplay/9001">Download</a>
</div>
<div class="space-y-3 relative">
  <a href="/en/cosplay/9002"><img data-src="/thumbs/9002.jpg"/><h3>Asuka</h3></a>
  <p>1,200 P</p>
  <a href="/en/download/cosplay/9002/">Download</a>
</div>
<div class="space-y-3 relative">
  <h3>Teaser without a download link</h3>
</div>
</body></html>`

func TestExtractItemStubs(t *testing.T) {
	doc := mustDoc(t, listingHTML)

	stubs, noMore := ExtractItemStubs(doc, testBaseURL)
	if noMore {
		t.Fatal("expected noMore=false for a populated listing")
	}
	if len(stubs) != 2 {
		t.Fatalf("expected 2 stubs (container without download link skipped), got %d", len(stubs))
	}

	first := stubs[0]
	if first.Cosplay != "Sailor Moon" {
		t.Errorf("expected cosplay 'Sailor Moon', got %q", first.Cosplay)
	}
	if first.Origin != "Sailor Moon Series" {
		t.Errorf("expected origin 'Sailor Moon Series', got %q", first.Origin)
	}
	if first.Photos != 45 || first.Videos != 2 {
		t.Errorf("expected 45 photos / 2 videos, got %d / %d", first.Photos, first.Videos)
	}
	if first.DownloadID != "9001" {
		t.Errorf("expected download ID '9001', got %q", first.DownloadID)
	}
	if first.DownloadURL != testBaseURL+"/en/download/cosplay/9001" {
		t.Errorf("unexpected download URL %q", first.DownloadURL)
	}
	if first.DetailURL != testBaseURL+"/en/cosplay/9001" {
		t.Errorf("unexpected detail URL %q", first.DetailURL)
	}
	if first.Thumbnail != testBaseURL+"/thumbs/9001.jpg" {
		t.Errorf("unexpected thumbnail %q", first.Thumbnail)
	}

	second := stubs[1]
	if second.DownloadID != "9002" {
		t.Errorf("expected trailing slash trimmed from download ID, got %q", second.DownloadID)
	}
	if second.Photos != 1200 {
		t.Errorf("expected grouped photo count parsed as 1200, got %d", second.Photos)
	}
	if second.Thumbnail != testBaseURL+"/thumbs/9002.jpg" {
		t.Errorf("expected lazy-loaded thumbnail via data-src, got %q", second.Thumbnail)
	}
	if second.Origin != "" {
		t.Errorf("expected empty origin, got %q", second.Origin)
	}
}

func TestExtractItemStubsStopSignals(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{
			name: "not found title",
			html: `<html><head><title>404 Not Found</title></head><body></body></html>`,
		},
		{
			name: "no containers",
			html: `<html><head><title>Mimi - GalleryEpic</title></head><body><p>nothing here</p></body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubs, noMore := ExtractItemStubs(mustDoc(t, tt.html), testBaseURL)
			if !noMore {
				t.Error("expected noMore=true")
			}
			if len(stubs) != 0 {
				t.Errorf("expected no stubs, got %d", len(stubs))
			}
		})
	}
}

func TestExtractCosplayerName(t *testing.T) {
	if got := ExtractCosplayerName(mustDoc(t, listingHTML)); got != "Mimi" {
		t.Errorf("expected 'Mimi', got %q", got)
	}
	if got := ExtractCosplayerName(mustDoc(t, "<html><body></body></html>")); got != "" {
		t.Errorf("expected empty name, got %q", got)
	}
}

func TestExtractDetailStats(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<div class="flex space-x-4 mt-4 mb-6">
  <p>2024-05-01</p>
  <p>12,345 views</p>
  <p>678 downloads</p>
</div>
<div class="flex justify-between items-center">
  <p>File Size</p>
  <p>31.5MB</p>
</div>
</body></html>`)

	stats := ExtractDetailStats(doc)
	if stats.CreatedDate != "2024-05-01" {
		t.Errorf("expected date '2024-05-01', got %q", stats.CreatedDate)
	}
	if stats.Views != 12345 {
		t.Errorf("expected 12345 views, got %d", stats.Views)
	}
	if stats.Downloads != 678 {
		t.Errorf("expected 678 downloads, got %d", stats.Downloads)
	}
	if stats.FileSize != "31.50 MB" {
		t.Errorf("expected normalized size '31.50 MB', got %q", stats.FileSize)
	}
}

func TestExtractDetailStatsParagraphFallback(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<div class="flex space-x-4 mt-4 mb-6">
  <p>May 1, 2024</p>
  <p>99 Views</p>
</div>
<p>Total archive 120 MB</p>
</body></html>`)

	stats := ExtractDetailStats(doc)
	if stats.Views != 99 {
		t.Errorf("expected case-insensitive views match, got %d", stats.Views)
	}
	if stats.FileSize != "120 MB" {
		t.Errorf("expected size scanned from loose paragraph, got %q", stats.FileSize)
	}
	if stats.Downloads != 0 {
		t.Errorf("expected zero downloads, got %d", stats.Downloads)
	}
}

func TestExtractFallbackFileSize(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name: "second paragraph of header row",
			html: `<div class="flex justify-between items-center"><p>Size</p><p>7 GB</p></div>`,
			expected: "7 GB",
		},
		{
			name: "bracketed token in first paragraph",
			html: `<div class="flex justify-between items-center"><p>[45P - 31MB]</p></div>`,
			expected: "31 MB",
		},
		{
			name: "row scan when second paragraph is not a size",
			html: `<div class="flex justify-between items-center"><p>Files</p><p>45 items</p><p>2.5 GB</p></div>`,
			expected: "2.50 GB",
		},
		{
			name: "document scan without header rows",
			html: `<p>archive is 500 KB</p>`,
			expected: "500 KB",
		},
		{
			name: "no size anywhere",
			html: `<p>no sizes on this page</p>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, "<html><body>"+tt.html+"</body></html>")
			if got := ExtractFallbackFileSize(doc); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestExtractProfile(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<h4 class="scroll-m-20">Mimi</h4>
<img variant="avatar" src="/img/avatar.jpg">
<img class="banner" data-src="/img/banner.jpg">
<a href="https://twitter.com/mimi">Twitter</a>
<a href="https://galleryepic.com/en/coser/1234/1">View on site</a>
<a href="/en/cosplay/9001">local</a>
</body></html>`)

	profileURL := testBaseURL + "/en/coser/1234/1"
	profile := ExtractProfile(doc, "1234", testBaseURL, profileURL)

	if profile.Name != "Mimi" {
		t.Errorf("expected name 'Mimi', got %q", profile.Name)
	}
	if profile.ProfileURL != profileURL {
		t.Errorf("unexpected profile URL %q", profile.ProfileURL)
	}
	if profile.Avatar != testBaseURL+"/img/avatar.jpg" {
		t.Errorf("unexpected avatar %q", profile.Avatar)
	}
	if profile.Banner != testBaseURL+"/img/banner.jpg" {
		t.Errorf("unexpected banner %q", profile.Banner)
	}
	if len(profile.Links) != 1 {
		t.Fatalf("expected 1 external link (same-site links filtered), got %d", len(profile.Links))
	}
	if profile.Links[0].URL != "https://twitter.com/mimi" || profile.Links[0].Text != "Twitter" {
		t.Errorf("unexpected link %+v", profile.Links[0])
	}
}

func TestExtractProfileFallbacks(t *testing.T) {
	profile := ExtractProfile(mustDoc(t, "<html><body></body></html>"), "1234", testBaseURL, testBaseURL+"/en/coser/1234/1")
	if profile.Name != "Cosplayer 1234" {
		t.Errorf("expected fallback name, got %q", profile.Name)
	}
	if profile.Avatar != "" || profile.Banner != "" {
		t.Errorf("expected empty images, got %q / %q", profile.Avatar, profile.Banner)
	}
	if profile.Links == nil || len(profile.Links) != 0 {
		t.Errorf("expected empty non-nil links, got %v", profile.Links)
	}

	plain := ExtractProfile(mustDoc(t, "<html><body><h4>Plain</h4></body></html>"), "1", testBaseURL, "")
	if plain.Name != "Plain" {
		t.Errorf("expected bare h4 fallback, got %q", plain.Name)
	}
}
