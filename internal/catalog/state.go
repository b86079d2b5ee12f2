// Package catalog implements the catalog view: the immutable view state,
// the transitions applied by load, search and sort, and the sessions that
// own one state each.
package catalog

import (
	"fmt"

	"github.com/hpungsan/fishfacts/internal/species"
)

// Lifecycle messages shown in place of table rows.
const (
	MsgLoading = "Loading..."
	MsgError   = "Something went wrong"
	MsgEmpty   = "No results"
)

// Op identifies the operation that started a request.
type Op int

const (
	OpLoad Op = iota
	OpSearch
)

func (o Op) String() string {
	switch o {
	case OpLoad:
		return "load"
	case OpSearch:
		return "search"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// ViewState is everything the catalog view renders. Values are never mutated
// in place: every transition returns a new ViewState. Records slices are
// shared between states and must be treated as read-only.
type ViewState struct {
	Loading bool             `json:"loading"`
	Error   bool             `json:"error"`
	Query   string           `json:"query"`
	Sort    species.SortKey  `json:"sort,omitempty"`
	Records []species.Record `json:"records"`

	// Generation increases with every request started. Only a completion
	// carrying the current generation may change the state.
	Generation uint64 `json:"generation"`
}

// Message returns the lifecycle message to show instead of rows, or "" when
// rows should be shown. Loading takes precedence over error, error over empty.
func (s ViewState) Message() string {
	switch {
	case s.Loading:
		return MsgLoading
	case s.Error:
		return MsgError
	case len(s.Records) == 0:
		return MsgEmpty
	default:
		return ""
	}
}

// ShowRows reports whether the record rows are displayed.
func (s ViewState) ShowRows() bool {
	return s.Message() == ""
}

// Footer returns the result-count line. It is blank while loading.
func (s ViewState) Footer() string {
	if s.Loading {
		return ""
	}
	return FooterFor(len(s.Records))
}

// FooterFor pluralizes the result count: 0 -> "", 1 -> singular, N -> plural.
func FooterFor(n int) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return "Showing 1 result"
	default:
		return fmt.Sprintf("Showing %d results", n)
	}
}

// Begin marks a new request in flight and returns the new state. The
// returned state's Generation is the token the completion must present.
func Begin(s ViewState) ViewState {
	s.Loading = true
	s.Error = false
	s.Generation++
	return s
}

// Complete applies a successful fetch. A load keeps every valid record in
// the order received; a search keeps the valid records matching query and
// resets the query text. Stale generations leave s unchanged.
func Complete(s ViewState, gen uint64, op Op, fetched []species.Record, query string) ViewState {
	if gen != s.Generation {
		return s
	}
	s.Loading = false
	s.Error = false
	switch op {
	case OpSearch:
		s.Records = species.Filter(fetched, query)
		s.Query = ""
	default:
		s.Records = species.KeepValid(fetched)
	}
	return s
}

// Fail applies a failed fetch: the error flag is set and the records are
// left as they were. Stale generations leave s unchanged.
func Fail(s ViewState, gen uint64, op Op) ViewState {
	if gen != s.Generation {
		return s
	}
	s.Loading = false
	s.Error = true
	if op == OpSearch {
		s.Query = ""
	}
	return s
}

// Sort reorders the displayed records ascending by key. It never fetches and
// never restores records removed by an earlier search.
func Sort(s ViewState, key species.SortKey) ViewState {
	s.Sort = key
	s.Records = species.Sort(s.Records, key)
	return s
}

// SetQuery records the search box text.
func SetQuery(s ViewState, query string) ViewState {
	s.Query = query
	return s
}
