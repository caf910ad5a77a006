package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Jed556/Gallery-Epic-Scraper/models"
)

// ExtractProfile parses a coser's first listing page into a profile. Only
// outbound links pointing away from the source site are collected, which
// suppresses "view on site" navigation noise.
func ExtractProfile(doc *goquery.Document, coserID, baseURL, profileURL string) *models.CoserProfile {
	profile := &models.CoserProfile{
		Links:      []models.ProfileLink{},
		ProfileURL: profileURL,
	}

	name := doc.Find(nameSelector).First()
	if name.Length() == 0 {
		name = doc.Find("h4").First()
	}
	profile.Name = strings.TrimSpace(name.Text())
	if profile.Name == "" {
		profile.Name = "Cosplayer " + coserID
	}

	profile.Avatar = profileImage(doc, "avatar", baseURL)
	profile.Banner = profileImage(doc, "banner", baseURL)

	baseHost := hostOf(baseURL)
	doc.Find(`a[href*="http"]`).Each(func(_ int, link *goquery.Selection) {
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" {
			return
		}
		abs := absoluteURL(baseURL, href)
		if host := hostOf(abs); host == "" || strings.HasSuffix(host, baseHost) {
			return
		}
		profile.Links = append(profile.Links, models.ProfileLink{
			URL:  abs,
			Text: strings.TrimSpace(link.Text()),
		})
	})

	return profile
}

func profileImage(doc *goquery.Document, variant, baseURL string) string {
	img := doc.Find(`img[variant="` + variant + `"]`).First()
	if img.Length() == 0 {
		img = doc.Find("img." + variant).First()
	}
	if src := imageSource(img); src != "" {
		return absoluteURL(baseURL, src)
	}
	return ""
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
