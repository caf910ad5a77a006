package scraper

import "github.com/Jed556/Gallery-Epic-Scraper/models"

// State is the lifecycle phase of a crawl run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one entry in the run's output stream. The stream carries
// progress updates, a single profile event, one items event per productive
// page holding the full accumulated list, and a terminal done event after
// which the channel closes.
type Event interface {
	isEvent()
}

// ProgressEvent reports crawl progress as a percentage plus status text.
type ProgressEvent struct {
	Percent float64
	Status  string
	Page    int
}

// ProfileEvent delivers the coser profile, exactly once per run. On
// profile fetch failure it carries the synthesized fallback profile.
type ProfileEvent struct {
	Profile *models.CoserProfile
}

// ItemsEvent delivers the full accumulated item list so consumers can
// re-render without merge logic.
type ItemsEvent struct {
	Items []*models.GalleryItem
}

// DoneEvent is the terminal event of a run.
type DoneEvent struct {
	State  State
	Result *models.CrawlResult
}

func (ProgressEvent) isEvent() {}
func (ProfileEvent) isEvent()  {}
func (ItemsEvent) isEvent()    {}
func (DoneEvent) isEvent()     {}
