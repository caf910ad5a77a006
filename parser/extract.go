// Package parser extracts structured records from gallery markup. All
// extractors are pure: missing optional fields map to zero values, never
// to errors.
package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	containerSelector    = "div.space-y-3.relative"
	downloadLinkSelector = `a[href^="/en/download/cosplay/"]`
	detailLinkSelector   = `a[href^="/en/cosplay/"]`
	originSelector       = "p.text-muted-foreground"
	nameSelector         = "h4.scroll-m-20"
)

var (
	photosRe = regexp.MustCompile(`([\d,]+)\s*[Pp]\b`)
	videosRe = regexp.MustCompile(`([\d,]+)\s*[Vv]\b`)
)

// ItemStub is a partially-populated item parsed from a listing page,
// before detail enrichment.
type ItemStub struct {
	Cosplay     string
	Origin      string
	Photos      int
	Videos      int
	DownloadID  string
	DownloadURL string
	Thumbnail   string
	DetailURL   string
}

// ExtractItemStubs locates item containers on a listing page and parses one
// stub per container. The second return value reports the stop signal: true
// when the document is a not-found page or carries no containers at all.
func ExtractItemStubs(doc *goquery.Document, baseURL string) ([]ItemStub, bool) {
	title := strings.ToLower(doc.Find("title").First().Text())
	if strings.Contains(title, "404") || strings.Contains(title, "not found") {
		return nil, true
	}

	containers := doc.Find(containerSelector)
	if containers.Length() == 0 {
		return nil, true
	}

	var stubs []ItemStub
	containers.Each(func(_ int, container *goquery.Selection) {
		downloadLink := container.Find(downloadLinkSelector).First()
		href := strings.TrimSpace(downloadLink.AttrOr("href", ""))
		if href == "" {
			return
		}

		stub := ItemStub{
			DownloadURL: absoluteURL(baseURL, href),
			DownloadID:  lastPathSegment(href),
		}

		detailLink := container.Find(detailLinkSelector).First()
		if detailLink.Length() > 0 {
			stub.Cosplay = strings.TrimSpace(detailLink.Find("h3").First().Text())
			if detailHref := strings.TrimSpace(detailLink.AttrOr("href", "")); detailHref != "" {
				stub.DetailURL = absoluteURL(baseURL, detailHref)
			}
			img := detailLink.Find("img").First()
			if src := imageSource(img); src != "" {
				stub.Thumbnail = absoluteURL(baseURL, src)
			}
		}
		if stub.Cosplay == "" {
			stub.Cosplay = strings.TrimSpace(container.Find("h3").First().Text())
		}
		if stub.Thumbnail == "" {
			img := container.Find("img").First()
			if src := imageSource(img); src != "" {
				stub.Thumbnail = absoluteURL(baseURL, src)
			}
		}

		container.Find("p").Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if text == "" {
				return
			}
			if m := photosRe.FindStringSubmatch(text); m != nil {
				stub.Photos = parseCount(m[1])
			}
			if m := videosRe.FindStringSubmatch(text); m != nil {
				stub.Videos = parseCount(m[1])
			}
		})

		stub.Origin = strings.TrimSpace(container.Find(originSelector).First().Text())

		stubs = append(stubs, stub)
	})

	return stubs, false
}

// ExtractCosplayerName pulls the coser display name from a listing page.
func ExtractCosplayerName(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find(nameSelector).First().Text())
}

func imageSource(img *goquery.Selection) string {
	if img.Length() == 0 {
		return ""
	}
	if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
		return src
	}
	return strings.TrimSpace(img.AttrOr("data-src", ""))
}

func parseCount(grouped string) int {
	value, err := strconv.Atoi(strings.ReplaceAll(grouped, ",", ""))
	if err != nil {
		return 0
	}
	return value
}

func lastPathSegment(href string) string {
	trimmed := strings.TrimSuffix(href, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func absoluteURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
