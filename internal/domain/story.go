package domain

import (
	"errors"
	"time"
)

// SourceKind tells the classifier and parsers which family a source belongs to.
type SourceKind string

const (
	// KindNewsletter covers RSS/Atom newsletter editions.
	KindNewsletter SourceKind = "newsletter"
	// KindForum is the flat JSON feed family; it tolerates short titles and summaries.
	KindForum SourceKind = "forum"
	// KindArticle covers scraped HTML pages.
	KindArticle SourceKind = "article"
)

// IsFlatFeed reports whether records of this kind come from a flat JSON feed.
func (k SourceKind) IsFlatFeed() bool {
	return k == KindForum
}

// RecordType tags a Story as a plain story or an edition with nested stories.
type RecordType string

const (
	TypeStory   RecordType = "story"
	TypeEdition RecordType = "edition"
)

// Story is the atomic display record. An edition is a Story with Type
// TypeEdition, a Resume and nested Stories.
type Story struct {
	ID          string     `json:"id"`
	Type        RecordType `json:"type"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	URL         string     `json:"url"`
	Summary     string     `json:"summary"`
	PublishedAt time.Time  `json:"published_at"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Tags        []string   `json:"tags"`
	Resume      string     `json:"resume,omitempty"`
	Stories     []Story    `json:"stories,omitempty"`

	Kind SourceKind `json:"-"`
}

// IsEdition reports whether the record is a parent edition.
func (s Story) IsEdition() bool {
	return s.Type == TypeEdition
}

// Clone returns a copy that shares no slices with s.
func (s Story) Clone() Story {
	out := s
	if s.Tags != nil {
		out.Tags = append([]string(nil), s.Tags...)
	}
	if s.Stories != nil {
		out.Stories = make([]Story, len(s.Stories))
		for i := range s.Stories {
			out.Stories[i] = s.Stories[i].Clone()
		}
	}
	return out
}

// Payload is the immutable output of one pipeline run.
type Payload struct {
	LastUpdated time.Time `json:"last_updated"`
	Articles    []Story   `json:"articles"`
}

// NewPayload stamps the collection with a UTC timestamp. Articles is never nil
// so an empty run serializes as an empty list.
func NewPayload(at time.Time, articles []Story) Payload {
	if articles == nil {
		articles = []Story{}
	}
	return Payload{LastUpdated: at.UTC(), Articles: articles}
}

// Count returns the number of top-level records and nested stories.
func (p Payload) Count() (records, nested int) {
	for _, a := range p.Articles {
		records++
		nested += len(a.Stories)
	}
	return records, nested
}

var (
	ErrUnknownScanner   = errors.New("unknown scanner")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrEmptyDocument    = errors.New("empty document")
	ErrInvalidURL       = errors.New("invalid url")
	ErrNoPayload        = errors.New("no payload stored")
	ErrRunInProgress    = errors.New("run already in progress")
)

// SourceError records a recoverable per-site failure.
type SourceError struct {
	Site string
	Err  error
}

func (e SourceError) Error() string {
	return "site " + e.Site + ": " + e.Err.Error()
}

func (e SourceError) Unwrap() error {
	return e.Err
}
