package catalog

import (
	"context"

	"github.com/hpungsan/fishfacts/internal/species"
)

// Lookup runs one search outside any session: fetch, keep the valid records
// whose name contains query, then sort by key when key is set. Fetch errors
// are returned as they are, alongside the failed state.
func Lookup(ctx context.Context, f Fetcher, query string, key species.SortKey) (ViewState, error) {
	s := Begin(ViewState{Records: []species.Record{}})

	fetched, err := f.FetchSpecies(ctx)
	if err != nil {
		return Fail(s, s.Generation, OpSearch), err
	}

	s = Complete(s, s.Generation, OpSearch, fetched, query)
	if key != "" {
		s = Sort(s, key)
	}
	return s, nil
}
