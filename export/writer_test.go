package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Jed556/Gallery-Epic-Scraper/models"
)

func sampleItems() []*models.GalleryItem {
	scraped := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []*models.GalleryItem{
		{
			Page: 1, Cosplayer: "Mimi", Cosplay: "Sailor Moon", Origin: "Sailor Moon Series",
			Photos: 45, Videos: 2, Views: 900, Downloads: 30,
			DateCreated: "2024-05-01", FileSize: "31 MB", SizeBytes: 31 * 1024 * 1024,
			DownloadID: "9001", DownloadURL: "https://galleryepic.com/en/download/cosplay/9001",
			DetailURL: "https://galleryepic.com/en/cosplay/9001",
			Thumbnail: "https://galleryepic.com/thumbs/9001.jpg",
			ScrapedAt: scraped,
		},
		{
			Page: 2, Cosplayer: "Mimi", Cosplay: "Asuka, \"EVA pilot\"", Origin: "Evangelion",
			Photos: 120, Views: 2500, Downloads: 80,
			DateCreated: "May 3, 2024", FileSize: "1.5 GB", SizeBytes: 1610612736,
			DownloadID: "9002", DownloadURL: "https://galleryepic.com/en/download/cosplay/9002",
			ScrapedAt: scraped,
		},
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "items.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter failed: %v", err)
	}
	if err := w.Write(sampleItems()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}
	if records[0][0] != "page" || records[0][len(records[0])-1] != "scraped_at" {
		t.Errorf("unexpected header %v", records[0])
	}

	row := records[1]
	if row[0] != "1" || row[2] != "Sailor Moon" || row[9] != "31 MB" || row[10] != "32505856" {
		t.Errorf("unexpected first row %v", row)
	}
	if row[15] != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected scraped_at %q", row[15])
	}

	// Embedded quotes and commas must survive the roundtrip.
	if records[2][2] != `Asuka, "EVA pilot"` {
		t.Errorf("quoted title mangled: %q", records[2][2])
	}
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")

	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("NewJSONWriter failed: %v", err)
	}
	if err := w.Write(sampleItems()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "[\n") {
		t.Error("expected a pretty-printed array")
	}

	var decoded []*models.GalleryItem
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 items, got %d", len(decoded))
	}
	if decoded[0].Cosplay != "Sailor Moon" || decoded[0].SizeBytes != 32505856 {
		t.Errorf("unexpected first item %+v", decoded[0])
	}

	// A second Close is a no-op, not an error.
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestJSONWriterValidateEmpty(t *testing.T) {
	w, err := NewJSONWriter(filepath.Join(t.TempDir(), "empty.json"))
	if err != nil {
		t.Fatalf("NewJSONWriter failed: %v", err)
	}
	defer w.Close()

	if err := w.Validate(); err == nil {
		t.Error("expected Validate to fail with no items")
	}
}

func TestHTMLWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")

	w, err := NewHTMLWriter(path)
	if err != nil {
		t.Fatalf("NewHTMLWriter failed: %v", err)
	}
	w.SetProfile(&models.CoserProfile{
		Name:  "Mimi",
		Links: []models.ProfileLink{{URL: "https://twitter.com/mimi", Text: "Twitter"}},
	})
	if err := w.Write(sampleItems()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	report := string(data)

	for _, want := range []string{
		"Mimi",
		"Sailor Moon",
		`data-origin=`,
		`data-photos="45"`,
		`data-views="900"`,
		"filterAndSort",
		"https://twitter.com/mimi",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestDualWriter(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "items.csv")
	jsonPath := filepath.Join(dir, "items.json")

	w, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("NewDualWriter failed: %v", err)
	}
	if err := w.Write(sampleItems()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("missing output %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Errorf("empty output %s", path)
		}
	}
}
