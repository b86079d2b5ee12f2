package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/fishfacts/internal/catalog"
	"github.com/hpungsan/fishfacts/internal/errors"
	"github.com/hpungsan/fishfacts/internal/species"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	fetcher catalog.Fetcher
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(fetcher catalog.Fetcher, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{fetcher: fetcher, logger: logger}
}

// SearchRequest represents the arguments for species_search.
type SearchRequest struct {
	Query string `json:"query,omitempty"`
	Sort  string `json:"sort,omitempty"`
}

// Item is one species row in a tool result.
type Item struct {
	Species     string `json:"species"`
	Calories    string `json:"calories"`
	Fat         string `json:"fat"`
	ServingSize string `json:"serving_size"`
}

// SearchResult is the species_search output.
type SearchResult struct {
	Items  []Item          `json:"items"`
	Count  int             `json:"count"`
	Footer string          `json:"footer"`
	Sort   species.SortKey `json:"sort,omitempty"`
}

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// HandleSearch handles the species_search tool call. Like the web search it
// always re-reads upstream, keeps valid records whose name contains the
// query, and then applies the optional sort.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var key species.SortKey
	if input.Sort != "" {
		if key, err = species.ParseSortKey(input.Sort); err != nil {
			return errorResult(err), nil
		}
	}

	state, err := catalog.Lookup(ctx, h.fetcher, input.Query, key)
	if err != nil {
		h.logger.Info("species_search failed", zap.Error(err))
		return errorResult(err), nil
	}

	items := make([]Item, len(state.Records))
	for i, rec := range state.Records {
		items[i] = Item{
			Species:     rec.Name(),
			Calories:    rec.Calories(),
			Fat:         rec.FatTotal(),
			ServingSize: rec.ServingWeight(),
		}
	}

	return successResult(SearchResult{
		Items:  items,
		Count:  len(items),
		Footer: state.Footer(),
		Sort:   key,
	})
}

// HandleSortKeys handles the species_sort_keys tool call.
func (h *Handlers) HandleSortKeys(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"sort_keys": species.SortKeys})
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal and upstream causes are never exposed, only the code and message.
func errorResult(err error) *mcp.CallToolResult {
	cErr := errors.As(err)

	message := cErr.Message
	if cErr.Code == errors.ErrInternal {
		message = "an internal error occurred"
	}
	errorObj := map[string]any{
		"code":    cErr.Code,
		"message": message,
		"status":  cErr.Status,
	}
	if cErr.Code == errors.ErrInvalidRequest && cErr.Details != nil {
		errorObj["details"] = cErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
