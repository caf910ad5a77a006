package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Jed556/Gallery-Epic-Scraper/models"
)

// JSONWriter collects items and renders them as one pretty-printed JSON
// array on Close.
type JSONWriter struct {
	filename string
	mu       sync.Mutex
	items    []*models.GalleryItem
	closed   bool
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	// Fail early if the path is not writable.
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close json file: %w", err)
	}

	return &JSONWriter{filename: filename}, nil
}

// Write buffers items for the final array render.
func (jw *JSONWriter) Write(items []*models.GalleryItem) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closed {
		return fmt.Errorf("json writer already closed")
	}
	jw.items = append(jw.items, items...)
	return nil
}

// Close marshals the accumulated items as an indented array and writes
// the file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closed {
		return nil
	}
	jw.closed = true

	data, err := json.MarshalIndent(jw.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	if err := os.WriteFile(jw.filename, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// Validate ensures at least one item was collected.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if len(jw.items) == 0 {
		return fmt.Errorf("json output has no items")
	}
	return nil
}
