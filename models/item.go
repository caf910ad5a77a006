// Package models defines data structures for the scraper.
package models

import "time"

// GalleryItem represents one scraped gallery entry.
type GalleryItem struct {
	Page        int       `csv:"page" json:"page"`
	Cosplayer   string    `csv:"cosplayer" json:"cosplayer"`
	Cosplay     string    `csv:"cosplay" json:"cosplay"`
	Origin      string    `csv:"origin" json:"origin"`
	Photos      int       `csv:"photos" json:"photos"`
	Videos      int       `csv:"videos" json:"videos"`
	Views       int       `csv:"views" json:"views"`
	Downloads   int       `csv:"downloads" json:"downloads"`
	DateCreated string    `csv:"date_created" json:"dateCreated"`
	FileSize    string    `csv:"file_size" json:"fileSize"`
	SizeBytes   int64     `csv:"size_bytes" json:"sizeBytes"`
	DownloadID  string    `csv:"download_id" json:"downloadId"`
	DownloadURL string    `csv:"download_url" json:"downloadUrl"`
	Thumbnail   string    `csv:"thumbnail" json:"thumbnail"`
	DetailURL   string    `csv:"detail_url" json:"detailUrl"`
	ScrapedAt   time.Time `csv:"scraped_at" json:"scrapedAt"`
}

// Key returns the dedupe key used to suppress re-listing the same item
// across pages within one run.
func (g *GalleryItem) Key() string {
	return g.DownloadID + "-" + g.DownloadURL
}

// ProfileLink is one outbound link found on a coser profile page.
type ProfileLink struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// CoserProfile holds the metadata scraped from a coser's listing page.
type CoserProfile struct {
	Name       string        `json:"name"`
	Avatar     string        `json:"avatar"`
	Banner     string        `json:"banner"`
	Links      []ProfileLink `json:"links"`
	ProfileURL string        `json:"profileUrl"`
}

// FallbackProfile builds the profile used when the profile page could not
// be fetched or parsed. Profile failure never fails a run.
func FallbackProfile(coserID, profileURL string) *CoserProfile {
	return &CoserProfile{
		Name:       "Cosplayer " + coserID,
		Links:      []ProfileLink{},
		ProfileURL: profileURL,
	}
}

// CrawlResult holds the overall result of one crawl run.
type CrawlResult struct {
	Items        []*GalleryItem
	Profile      *CoserProfile
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	PageCount    int
	RequestCount int
	ErrorCount   int
	ErrorsByType map[string]int
}
