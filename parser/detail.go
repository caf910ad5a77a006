package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	statsBlockSelector = "div.flex.space-x-4.mt-4.mb-6"
	headerRowSelector  = "div.flex.justify-between.items-center"
)

var (
	viewsRe     = regexp.MustCompile(`(?i)([\d,]+)\s*views?`)
	downloadsRe = regexp.MustCompile(`(?i)([\d,]+)\s*downloads?`)
	bracketRe   = regexp.MustCompile(`(?i)\[[^\]]*?([\d.,]+)\s*(KB|MB|GB)\]`)
)

// DetailStats carries the metadata scraped from an item's detail page.
// Fields the page does not expose stay at their zero values.
type DetailStats struct {
	Views       int
	Downloads   int
	CreatedDate string
	FileSize    string
}

// ExtractDetailStats parses the stats block of a detail page. The first
// paragraph is the creation date, later ones carry view and download
// counts. The file size is looked up independently in header-style rows,
// falling back to a document-order scan of all paragraphs.
func ExtractDetailStats(doc *goquery.Document) DetailStats {
	var stats DetailStats

	paragraphs := doc.Find(statsBlockSelector).First().Find("p")
	paragraphs.Each(func(i int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if i == 0 {
			stats.CreatedDate = text
			return
		}
		if m := viewsRe.FindStringSubmatch(text); m != nil {
			stats.Views = parseCount(m[1])
		}
		if m := downloadsRe.FindStringSubmatch(text); m != nil {
			stats.Downloads = parseCount(m[1])
		}
	})

	stats.FileSize = headerRowSize(doc)
	if stats.FileSize == "" {
		stats.FileSize = scanParagraphsForSize(doc.Selection)
	}

	return stats
}

// ExtractFallbackFileSize parses a download page for a file size, used when
// the detail page lacked one. Checks, in order: the second paragraph of a
// labeled header row, a bracketed "[... 31MB]" token in the first paragraph,
// any paragraph in the row, and finally every paragraph in the document.
func ExtractFallbackFileSize(doc *goquery.Document) string {
	size := ""
	doc.Find(headerRowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		paragraphs := row.Find("p")
		if paragraphs.Length() == 0 {
			return true
		}

		if paragraphs.Length() > 1 {
			candidate := strings.TrimSpace(paragraphs.Eq(1).Text())
			if sizeRe.MatchString(candidate) {
				size = NormalizeSizeText(candidate)
				return false
			}
		}

		first := strings.TrimSpace(paragraphs.Eq(0).Text())
		if m := bracketRe.FindStringSubmatch(first); m != nil {
			size = NormalizeSizeText(m[1] + " " + m[2])
			return false
		}

		if found := scanParagraphsForSize(row); found != "" {
			size = found
			return false
		}
		return true
	})

	if size == "" {
		size = scanParagraphsForSize(doc.Selection)
	}
	return size
}

func headerRowSize(doc *goquery.Document) string {
	size := ""
	doc.Find(headerRowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		paragraphs := row.Find("p")
		if paragraphs.Length() == 0 {
			return true
		}

		// Two-paragraph rows usually hold the size in the second cell.
		if paragraphs.Length() >= 2 {
			candidate := strings.TrimSpace(paragraphs.Eq(1).Text())
			if sizeRe.MatchString(candidate) {
				size = NormalizeSizeText(candidate)
				return false
			}
		}

		if found := scanParagraphsForSize(row); found != "" {
			size = found
			return false
		}
		return true
	})
	return size
}

func scanParagraphsForSize(root *goquery.Selection) string {
	size := ""
	root.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if sizeRe.MatchString(text) {
			size = NormalizeSizeText(text)
			return false
		}
		return true
	})
	return size
}
