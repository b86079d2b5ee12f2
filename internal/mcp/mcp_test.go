package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/fishfacts/internal/config"
	"github.com/hpungsan/fishfacts/internal/errors"
	"github.com/hpungsan/fishfacts/internal/species"
)

// stubFetcher returns fixed records or an error.
type stubFetcher struct {
	records []species.Record
	err     error
	calls   int
}

func (f *stubFetcher) FetchSpecies(context.Context) ([]species.Record, error) {
	f.calls++
	return f.records, f.err
}

func testRecords() []species.Record {
	return []species.Record{
		{"Species Name": "Atlantic Cod", "Calories": "82", "Fat, Total": "0.67 g", "Serving Weight": "100 g"},
		{"Species Name": "Pacific Halibut", "Calories": nil, "Fat, Total": "2.29 g", "Serving Weight": "100 g"},
		{"Species Name": "Yellowfin Tuna", "Calories": "109", "Fat, Total": "0.49 g", "Serving Weight": "100 g"},
		{"Species Name": "Atlantic Salmon", "Calories": "142", "Fat, Total": "6.34 g", "Serving Weight": "100 g"},
		{"Species Name": "Albacore Tuna", "Calories": "128", "Fat, Total": "2.96 g", "Serving Weight": "85 g"},
	}
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func decodeSearch(t *testing.T, result *mcp.CallToolResult) SearchResult {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var out SearchResult
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return out
}

func itemNames(items []Item) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Species
	}
	return names
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		args       map[string]any
		wantNames  []string
		wantFooter string
	}{
		{
			name:       "empty query returns all valid species in upstream order",
			args:       map[string]any{},
			wantNames:  []string{"Atlantic Cod", "Yellowfin Tuna", "Atlantic Salmon", "Albacore Tuna"},
			wantFooter: "Showing 4 results",
		},
		{
			name:       "case-insensitive substring",
			args:       map[string]any{"query": "TUNA"},
			wantNames:  []string{"Yellowfin Tuna", "Albacore Tuna"},
			wantFooter: "Showing 2 results",
		},
		{
			name:       "single match",
			args:       map[string]any{"query": "cod"},
			wantNames:  []string{"Atlantic Cod"},
			wantFooter: "Showing 1 result",
		},
		{
			name:       "invalid records never match",
			args:       map[string]any{"query": "halibut"},
			wantNames:  []string{},
			wantFooter: "",
		},
		{
			name:       "sorted by calories",
			args:       map[string]any{"query": "a", "sort": "Calories"},
			wantNames:  []string{"Atlantic Cod", "Yellowfin Tuna", "Albacore Tuna", "Atlantic Salmon"},
			wantFooter: "Showing 4 results",
		},
		{
			name:       "sorted by serving size keeps ties stable",
			args:       map[string]any{"sort": "Serving Size"},
			wantNames:  []string{"Albacore Tuna", "Atlantic Cod", "Yellowfin Tuna", "Atlantic Salmon"},
			wantFooter: "Showing 4 results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFetcher{records: testRecords()}
			h := NewHandlers(f, nil)

			result, err := h.HandleSearch(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			out := decodeSearch(t, result)
			got := itemNames(out.Items)
			if strings.Join(got, "|") != strings.Join(tt.wantNames, "|") {
				t.Errorf("items = %v, want %v", got, tt.wantNames)
			}
			if out.Count != len(tt.wantNames) {
				t.Errorf("count = %d, want %d", out.Count, len(tt.wantNames))
			}
			if out.Footer != tt.wantFooter {
				t.Errorf("footer = %q, want %q", out.Footer, tt.wantFooter)
			}
			if f.calls != 1 {
				t.Errorf("upstream calls = %d, want 1", f.calls)
			}
		})
	}
}

func TestHandleSearch_ItemFields(t *testing.T) {
	h := NewHandlers(&stubFetcher{records: testRecords()}, nil)

	result, _ := h.HandleSearch(context.Background(), makeRequest(map[string]any{"query": "albacore"}))
	out := decodeSearch(t, result)

	want := Item{Species: "Albacore Tuna", Calories: "128", Fat: "2.96 g", ServingSize: "85 g"}
	if len(out.Items) != 1 || out.Items[0] != want {
		t.Errorf("items = %+v, want [%+v]", out.Items, want)
	}
}

func TestHandleSearch_InvalidSortKey(t *testing.T) {
	f := &stubFetcher{records: testRecords()}
	h := NewHandlers(f, nil)

	result, err := h.HandleSearch(context.Background(), makeRequest(map[string]any{"sort": "Protein"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
	if f.calls != 0 {
		t.Errorf("upstream calls = %d, want 0 for a rejected request", f.calls)
	}
}

func TestHandleSearch_BadArgumentType(t *testing.T) {
	h := NewHandlers(&stubFetcher{records: testRecords()}, nil)

	result, _ := h.HandleSearch(context.Background(), makeRequest(map[string]any{"query": 42}))
	if !result.IsError {
		t.Fatal("expected error result")
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleSearch_FetchFailure(t *testing.T) {
	h := NewHandlers(&stubFetcher{err: errors.NewFetchFailure(fmt.Errorf("dial tcp: connection refused"))}, nil)

	result, _ := h.HandleSearch(context.Background(), makeRequest(map[string]any{"query": "cod"}))
	if !result.IsError {
		t.Fatal("expected error result")
	}
	assertErrorCode(t, result, "FETCH_FAILURE")
	if strings.Contains(extractErrorMessage(result), "connection refused") {
		t.Error("upstream cause must not be exposed")
	}
}

func TestHandleSortKeys(t *testing.T) {
	h := NewHandlers(&stubFetcher{}, nil)

	result, err := h.HandleSortKeys(context.Background(), makeRequest(nil))
	if err != nil || result.IsError {
		t.Fatalf("unexpected failure: %v %v", err, extractErrorMessage(result))
	}

	var out struct {
		SortKeys []string `json:"sort_keys"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []string{"Species", "Calories", "Fat", "Serving Size"}
	if strings.Join(out.SortKeys, "|") != strings.Join(want, "|") {
		t.Errorf("sort_keys = %v, want %v", out.SortKeys, want)
	}
}

func TestServerRegistration(t *testing.T) {
	s := NewServer(&stubFetcher{}, config.DefaultConfig(), nil, "test")
	tools := s.ListTools()

	for _, name := range []string{"species_search", "species_sort_keys"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
	if len(tools) != 2 {
		t.Errorf("registered tool count = %d, want 2", len(tools))
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"species_sort_keys", "species_sort_keys"}

	s := NewServer(&stubFetcher{}, cfg, nil, "test")
	tools := s.ListTools()

	if len(tools) != 1 {
		t.Errorf("registered tool count = %d, want 1", len(tools))
	}
	if _, ok := tools["species_sort_keys"]; ok {
		t.Error("disabled tool species_sort_keys should not be registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledTools = AllToolNames()

	s := NewServer(&stubFetcher{}, cfg, nil, "test")
	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"species_search", "species_sort_keys"}, 0},
		{"one unknown", []string{"species_search", "species_delete"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if unknown := ValidateDisabledTools(tt.input); len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if strings.Join(names, ",") != "species_search,species_sort_keys" {
		t.Errorf("AllToolNames() = %v", names)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(fmt.Errorf("template: open /etc/secret: permission denied"))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}
	assertErrorCode(t, r, "INTERNAL")
	if strings.Contains(extractErrorMessage(r), "/etc/secret") {
		t.Errorf("internal error leaked details: %s", extractErrorMessage(r))
	}
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	if code, _ := errorObj["code"].(string); code != expectedCode {
		t.Errorf("error code = %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
