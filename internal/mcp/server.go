package mcp

import (
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hpungsan/fishfacts/internal/catalog"
	"github.com/hpungsan/fishfacts/internal/config"
	"github.com/hpungsan/fishfacts/internal/species"
)

var searchToolDef = mcp.NewTool("species_search",
	mcp.WithDescription("Search the live species nutrition catalog. Re-reads the upstream data on every call, "+
		"drops records missing calories, total fat or serving weight, and keeps species whose name contains the query "+
		"(case-insensitive). An empty query returns every valid species."),
	mcp.WithString("query",
		mcp.Description("Substring of the species name to match"),
	),
	mcp.WithString("sort",
		mcp.Description("Optional ascending sort applied to the result"),
		mcp.Enum(sortKeyNames()...),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var sortKeysToolDef = mcp.NewTool("species_sort_keys",
	mcp.WithDescription("List the sort keys accepted by species_search."),
	mcp.WithReadOnlyHintAnnotation(true),
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"species_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"species_sort_keys": {
		def:     sortKeysToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSortKeys },
	},
}

func sortKeyNames() []string {
	names := make([]string, len(species.SortKeys))
	for i, k := range species.SortKeys {
		names[i] = string(k)
	}
	return names
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the species tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(fetcher catalog.Fetcher, cfg *config.Config, logger *zap.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"fishfacts",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(fetcher, logger)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(fetcher catalog.Fetcher, cfg *config.Config, logger *zap.Logger, version string) error {
	s := NewServer(fetcher, cfg, logger, version)
	return server.ServeStdio(s)
}
