package entries

import (
	"time"
)

// AccessLevel is the caller's privilege, resolved upstream by authentication.
type AccessLevel int

const (
	// Public callers only ever see published entries.
	Public AccessLevel = iota
	// Privileged callers are the authenticated owner and see drafts too.
	Privileged
)

func (a AccessLevel) String() string {
	if a == Privileged {
		return "privileged"
	}
	return "public"
}

// Entry is a titled unit of content with a publish state.
type Entry struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	SlugPinned bool      `json:"-"` // set when the slug was given explicitly; it then survives title changes
	Content    string    `json:"content"`
	Published  bool      `json:"published"`
	Timestamp  time.Time `json:"timestamp"`
}

// ScoredEntry is an Entry returned by a ranked search. Lower scores are more relevant.
type ScoredEntry struct {
	Entry
	Score float64 `json:"score"`
}

// NewEntry holds the fields for Create. Slug and Timestamp are optional.
type NewEntry struct {
	Title     string
	Slug      string
	Content   string
	Published bool
	Timestamp time.Time
}

// EntryUpdate holds the fields to change in Update. Nil fields are left as they are.
type EntryUpdate struct {
	Title     *string
	Slug      *string
	Content   *string
	Published *bool
	Timestamp *time.Time
}

// Page slices an ordered result sequence. A Limit <= 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}

// Counts summarizes the store for stats output.
type Counts struct {
	Published int64 `json:"published"`
	Drafts    int64 `json:"drafts"`
	Indexed   int64 `json:"indexed"`
}
