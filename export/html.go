package export

import (
	"fmt"
	"html/template"
	"os"
	"sync"

	"github.com/Jed556/Gallery-Epic-Scraper/models"
	"github.com/Jed556/Gallery-Epic-Scraper/parser"
)

// HTMLWriter renders a self-contained gallery report: profile header,
// item cards carrying literal data attributes, and an embedded script for
// client-side search, origin filtering, and sorting.
type HTMLWriter struct {
	filename string
	mu       sync.Mutex
	items    []*models.GalleryItem
	profile  *models.CoserProfile
	closed   bool
}

// NewHTMLWriter initialises the HTML report writer.
func NewHTMLWriter(filename string) (*HTMLWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create html file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close html file: %w", err)
	}
	return &HTMLWriter{filename: filename}, nil
}

// SetProfile attaches the coser profile rendered in the report header.
func (hw *HTMLWriter) SetProfile(profile *models.CoserProfile) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.profile = profile
}

// Write buffers items for the final report render.
func (hw *HTMLWriter) Write(items []*models.GalleryItem) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.closed {
		return fmt.Errorf("html writer already closed")
	}
	hw.items = append(hw.items, items...)
	return nil
}

// Close renders the report and writes the file.
func (hw *HTMLWriter) Close() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.closed {
		return nil
	}
	hw.closed = true

	f, err := os.Create(hw.filename)
	if err != nil {
		return fmt.Errorf("create html file: %w", err)
	}
	defer f.Close()

	if err := reportTemplate.Execute(f, hw.reportData()); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// Validate ensures at least one item was collected.
func (hw *HTMLWriter) Validate() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if len(hw.items) == 0 {
		return fmt.Errorf("html output has no items")
	}
	return nil
}

type reportCard struct {
	Item   *models.GalleryItem
	SizeMB float64
}

type reportData struct {
	Name        string
	ItemCount   int
	TotalPhotos string
	TotalVideos string
	TotalSize   string
	Links       []models.ProfileLink
	Origins     []string
	Cards       []reportCard
}

func (hw *HTMLWriter) reportData() reportData {
	var photos, videos int64
	var size int64
	seenOrigins := make(map[string]struct{})
	var origins []string
	cards := make([]reportCard, 0, len(hw.items))

	for _, item := range hw.items {
		photos += int64(item.Photos)
		videos += int64(item.Videos)
		size += item.SizeBytes
		if item.Origin != "" {
			if _, ok := seenOrigins[item.Origin]; !ok {
				seenOrigins[item.Origin] = struct{}{}
				origins = append(origins, item.Origin)
			}
		}
		cards = append(cards, reportCard{
			Item:   item,
			SizeMB: float64(item.SizeBytes) / (1024 * 1024),
		})
	}

	name := "Gallery Report"
	var links []models.ProfileLink
	if hw.profile != nil {
		if hw.profile.Name != "" {
			name = hw.profile.Name
		}
		links = hw.profile.Links
	}

	return reportData{
		Name:        name,
		Links:       links,
		ItemCount:   len(hw.items),
		TotalPhotos: parser.FormatCompact(photos),
		TotalVideos: parser.FormatCompact(videos),
		TotalSize:   parser.FormatBytes(size),
		Origins:     origins,
		Cards:       cards,
	}
}

var reportTemplate = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>Gallery Report</title>
  <style>
    :root { --bg: #f5f7fb; --surface: #fff; --muted: #6b7280; --accent: #6750A4; --text: #111827; }
    * { box-sizing: border-box; }
    body { margin: 0; font-family: Inter, system-ui, sans-serif; background: var(--bg); color: var(--text); }
    .container { max-width: 1200px; margin: 20px auto; padding: 18px; }
    .header { background: var(--surface); border-radius: 12px; padding: 18px; display: flex; gap: 12px; align-items: center; box-shadow: 0 6px 18px rgba(2,6,23,0.12); }
    .name { font-weight: 700; font-size: 18px; }
    .meta { color: var(--muted); font-size: 13px; }
    .toolbar { margin-left: auto; display: flex; gap: 8px; }
    .input { padding: 10px; border-radius: 10px; border: 1px solid rgba(2,6,23,0.06); }
    .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(220px, 1fr)); gap: 14px; margin-top: 18px; }
    .card { background: var(--surface); border-radius: 10px; overflow: hidden; display: flex; flex-direction: column; box-shadow: 0 6px 18px rgba(2,6,23,0.12); }
    .thumb { position: relative; aspect-ratio: 3/4; background: #eee; }
    .thumb img { width: 100%; height: 100%; object-fit: cover; display: block; }
    .overlay { position: absolute; right: 8px; bottom: 8px; background: rgba(0,0,0,0.6); color: #fff; padding: 6px 8px; border-radius: 8px; font-size: 12px; font-weight: 700; }
    .body { padding: 12px; display: flex; flex-direction: column; gap: 6px; }
    .title { font-weight: 600; white-space: nowrap; overflow: hidden; text-overflow: ellipsis; }
    .subtitle, .stats { font-size: 13px; color: var(--muted); }
    .btn { background: var(--accent); color: #fff; padding: 8px 10px; border-radius: 10px; text-decoration: none; font-weight: 600; margin-top: auto; align-self: flex-start; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <div>
        <div class="name">{{.Name}}</div>
        <div class="meta">Scraped {{.ItemCount}} items &bull; {{.TotalPhotos}} photos &bull; {{.TotalVideos}} videos &bull; {{.TotalSize}}</div>
        {{if .Links}}<div class="meta">{{range .Links}}<a href="{{.URL}}" target="_blank" rel="noopener">{{.Text}}</a> {{end}}</div>{{end}}
      </div>
      <div class="toolbar">
        <input id="search" class="input" placeholder="Search cosplay or origin">
        <select id="originFilter" class="input">
          <option value="">All origins</option>
          {{range .Origins}}<option value="{{.}}">{{.}}</option>
          {{end}}</select>
        <select id="sortBy" class="input">
          <option value="default">Sort: Default</option>
          <option value="photos">Photos</option>
          <option value="videos">Videos</option>
          <option value="views">Views</option>
          <option value="downloads">Downloads</option>
          <option value="size">Size</option>
        </select>
        <button id="sortDir" class="input" title="Toggle ascending/descending">&darr;</button>
      </div>
    </div>
    <section class="grid" id="cards">
      {{range .Cards}}<article class="card" data-name="{{.Item.Cosplay}}" data-origin="{{.Item.Origin}}" data-photos="{{.Item.Photos}}" data-videos="{{.Item.Videos}}" data-views="{{.Item.Views}}" data-downloads="{{.Item.Downloads}}" data-size-mb="{{.SizeMB}}">
        <div class="thumb">
          {{if .Item.Thumbnail}}<img src="{{.Item.Thumbnail}}" loading="lazy" alt="{{.Item.Cosplay}}">{{end}}
          <div class="overlay">{{.Item.Photos}}P / {{.Item.Videos}}V</div>
        </div>
        <div class="body">
          <div class="title">{{.Item.Cosplay}}</div>
          <div class="subtitle">{{.Item.Origin}}</div>
          <div class="stats">{{.Item.DateCreated}}{{if .Item.FileSize}} &bull; {{.Item.FileSize}}{{end}}</div>
          <a class="btn" href="{{.Item.DownloadURL}}" target="_blank" rel="noopener">Download</a>
        </div>
      </article>
      {{end}}</section>
  </div>
  <script>
    const cardsRoot = document.getElementById('cards');
    const search = document.getElementById('search');
    const originFilter = document.getElementById('originFilter');
    const sortBy = document.getElementById('sortBy');
    const sortDirBtn = document.getElementById('sortDir');
    let sortDesc = true;

    function normalize(s) { return (s || '').toString().toLowerCase(); }
    function nodesArray() { return Array.from(cardsRoot.querySelectorAll('.card')); }

    function filterAndSort() {
      const q = normalize(search.value);
      const origin = normalize(originFilter.value);
      let nodes = nodesArray();
      nodes.forEach(n => {
        const name = normalize(n.dataset.name);
        const o = normalize(n.dataset.origin);
        const matches = (q === '' || name.includes(q) || o.includes(q)) && (origin === '' || o === origin);
        n.style.display = matches ? '' : 'none';
      });
      nodes = nodes.filter(n => n.style.display !== 'none');
      const key = sortBy.value;
      const desc = sortDesc ? 1 : -1;
      function val(n) {
        if (key === 'size') return parseFloat(n.dataset.sizeMb || 0);
        return parseFloat(n.dataset[key] || 0);
      }
      if (key !== 'default') {
        nodes.sort((a, b) => desc * (val(b) - val(a)));
      }
      nodes.forEach(n => cardsRoot.appendChild(n));
    }

    search.addEventListener('input', filterAndSort);
    originFilter.addEventListener('change', filterAndSort);
    sortBy.addEventListener('change', filterAndSort);
    sortDirBtn.addEventListener('click', () => {
      sortDesc = !sortDesc;
      sortDirBtn.innerHTML = sortDesc ? '&darr;' : '&uarr;';
      filterAndSort();
    });
  </script>
</body>
</html>
`))
