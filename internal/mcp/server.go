package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/notepad/internal/config"
	"github.com/hpungsan/notepad/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"idea", "step", "prompt", "update", "heuristic", "quickedit", "notepad"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"idea_submit": {
		def:     ideaSubmitToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIdeaSubmit },
	},
	"step_pass": {
		def:     stepPassToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStepPass },
	},
	"step_fail": {
		def:     stepFailToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStepFail },
	},
	"prompt_next": {
		def:     promptNextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePromptNext },
	},
	"update_list": {
		def:     updateListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdateList },
	},
	"update_get": {
		def:     updateGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdateGet },
	},
	"update_current": {
		def:     updateCurrentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdateCurrent },
	},
	"update_select": {
		def:     updateSelectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdateSelect },
	},
	"update_delete": {
		def:     updateDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdateDelete },
	},
	"heuristic_list": {
		def:     heuristicListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHeuristicList },
	},
	"quickedit_create": {
		def:     quickEditCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQuickEditCreate },
	},
	"notepad_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"notepad_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
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

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type prefix from a tool name ("step_pass" → "step").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server with the notepad tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(svc *ops.Service, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"notepad",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	h := NewHandlers(svc)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(svc *ops.Service, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(svc, cfg, version))
}

const instructions = `Execution notepad: turn an idea into a short checklist and surgical prompts.
Loop: idea_submit -> paste the prompt into your coding assistant -> step_pass / step_fail -> prompt_next.
A failed step makes prompt_next return a refined prompt that addresses the failure.
notepad_export and notepad_import move updates and heuristics between machines as JSONL.`
