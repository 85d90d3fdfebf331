// Package progress defines the event stream emitted while jobs crawl.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageJobStart   Stage = "JOB_START"
	StageJobDone    Stage = "JOB_DONE"
	StagePageParsed Stage = "PAGE_PARSED"
	StageFetchError Stage = "FETCH_ERROR"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event is one milestone in a job's crawl. PAGE_PARSED events carry the
// parsed-page artifact summary; callers wanting full page contents register
// their own Sink.
type Event struct {
	// JobID identifies the job run.
	JobID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// URL is the fetched page for page-scoped stages.
	URL string
	// Site is the page's host label.
	Site string
	// StatusClass groups the HTTP response code.
	StatusClass StatusClass
	// Title is the parsed page title, when present.
	Title string
	// Links counts outbound links discovered on the page.
	Links int
	// Bytes is the response body size.
	Bytes int64
	// Dur is the fetch latency, or the job runtime for JOB_DONE.
	Dur time.Duration
	// Result carries the terminal job status for JOB_DONE.
	Result string
	// Note attaches low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageJobStart:
	case StageJobDone:
		if e.Result == "" {
			return errors.New("job done requires result")
		}
	case StagePageParsed:
		if e.URL == "" {
			return errors.New("page parsed requires url")
		}
	case StageFetchError:
		if e.URL == "" {
			return errors.New("fetch error requires url")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// ClassifyStatus groups HTTP status codes for fetch events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
