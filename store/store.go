// Package store accumulates crawl results and maintains the derived
// filtered and sorted view consumed by the UI layer.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Jed556/Gallery-Epic-Scraper/models"
	"github.com/Jed556/Gallery-Epic-Scraper/scraper"
)

// SortKey selects the field the view is ordered by. SortDefault keeps
// original accumulation order.
type SortKey string

const (
	SortDefault   SortKey = "default"
	SortPhotos    SortKey = "photos"
	SortVideos    SortKey = "videos"
	SortViews     SortKey = "views"
	SortDownloads SortKey = "downloads"
	SortSize      SortKey = "size"
	SortDate      SortKey = "date"
)

// Store holds the accumulated items, the coser profile, and the filter and
// sort settings. The derived view is recomputed synchronously on every
// items, filter, or sort update.
type Store struct {
	mu sync.Mutex

	items   []*models.GalleryItem
	profile *models.CoserProfile
	view    []*models.GalleryItem

	query        string
	originFilter string
	sortBy       SortKey
	sortDesc     bool

	progress float64
	status   string
	page     int
}

// New returns an empty store with default-order descending sorting.
func New() *Store {
	return &Store{
		sortBy:   SortDefault,
		sortDesc: true,
	}
}

// Apply consumes one engine event. It is the store-side half of the
// engine's callback contract: progress updates stream through, the
// profile lands once, and each items event replaces the accumulated list.
func (s *Store) Apply(event scraper.Event) {
	switch ev := event.(type) {
	case scraper.ProgressEvent:
		s.mu.Lock()
		s.progress = ev.Percent
		s.status = ev.Status
		if ev.Page > 0 {
			s.page = ev.Page
		}
		s.mu.Unlock()
	case scraper.ProfileEvent:
		s.mu.Lock()
		s.profile = ev.Profile
		s.mu.Unlock()
	case scraper.ItemsEvent:
		s.mu.Lock()
		s.items = ev.Items
		s.recomputeLocked()
		s.mu.Unlock()
	case scraper.DoneEvent:
		s.mu.Lock()
		if ev.Result != nil {
			s.items = ev.Result.Items
			s.recomputeLocked()
		}
		s.mu.Unlock()
	}
}

// SetFilter updates the substring query and origin filter. The query
// matches case-insensitively against title, origin, or cosplayer name.
func (s *Store) SetFilter(query, origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
	s.originFilter = origin
	s.recomputeLocked()
}

// SetSort updates the sort key and direction.
func (s *Store) SetSort(key SortKey, desc bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortBy = key
	s.sortDesc = desc
	s.recomputeLocked()
}

// View returns the current filtered and sorted item list.
func (s *Store) View() []*models.GalleryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.GalleryItem(nil), s.view...)
}

// Items returns the full accumulated list in original order.
func (s *Store) Items() []*models.GalleryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.GalleryItem(nil), s.items...)
}

// Profile returns the coser profile, nil until the profile event arrives.
func (s *Store) Profile() *models.CoserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Progress returns the latest progress percentage, status text, and page.
func (s *Store) Progress() (float64, string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress, s.status, s.page
}

func (s *Store) recomputeLocked() {
	query := strings.ToLower(s.query)
	origin := strings.ToLower(s.originFilter)

	filtered := make([]*models.GalleryItem, 0, len(s.items))
	for _, item := range s.items {
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Cosplay), query) &&
			!strings.Contains(strings.ToLower(item.Origin), query) &&
			!strings.Contains(strings.ToLower(item.Cosplayer), query) {
			continue
		}
		if origin != "" && strings.ToLower(item.Origin) != origin {
			continue
		}
		filtered = append(filtered, item)
	}

	if s.sortBy != SortDefault {
		desc := s.sortDesc
		key := s.sortBy
		sort.SliceStable(filtered, func(i, j int) bool {
			a, b := sortValue(filtered[i], key), sortValue(filtered[j], key)
			if desc {
				return a > b
			}
			return a < b
		})
	}

	s.view = filtered
}

func sortValue(item *models.GalleryItem, key SortKey) int64 {
	switch key {
	case SortPhotos:
		return int64(item.Photos)
	case SortVideos:
		return int64(item.Videos)
	case SortViews:
		return int64(item.Views)
	case SortDownloads:
		return int64(item.Downloads)
	case SortSize:
		return item.SizeBytes
	case SortDate:
		return dateValue(item.DateCreated)
	default:
		return 0
	}
}

// dateValue gives a comparable ordering for the site-native date strings
// without committing to a parsed date type. Known layouts are tried in
// order; unparseable dates sort together at the low end.
func dateValue(date string) int64 {
	date = strings.TrimSpace(date)
	layouts := []string{"2006-01-02", "Jan 2, 2006", "January 2, 2006", "02/01/2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Unix()
		}
	}
	return 0
}
