package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/ops"
	"github.com/hpungsan/notepad/internal/update"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *ops.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *ops.Service) *Handlers {
	return &Handlers{svc: svc}
}

// Request types for each tool

// StepRequest represents the arguments for step_pass and step_fail.
type StepRequest struct {
	UpdateID string `json:"update_id,omitempty"`
	Step     string `json:"step"`
	Reason   string `json:"reason,omitempty"`
}

// IDRequest represents the arguments for tools addressing one update.
type IDRequest struct {
	ID string `json:"id"`
}

// ImportRequest represents the arguments for notepad_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// UpdateResponse wraps a possibly nil update so "none" serializes as null.
type UpdateResponse struct {
	Update *update.Update `json:"update"`
}

// Handler implementations

// HandleIdeaSubmit handles the idea_submit tool call.
func (h *Handlers) HandleIdeaSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.SubmitInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.SubmitIdea(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStepPass handles the step_pass tool call.
func (h *Handlers) HandleStepPass(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StepRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.MarkPass(ctx, ops.VerdictInput{UpdateID: input.UpdateID, Step: input.Step})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStepFail handles the step_fail tool call.
func (h *Handlers) HandleStepFail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StepRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.MarkFail(ctx, ops.VerdictInput{
		UpdateID: input.UpdateID,
		Step:     input.Step,
		Reason:   input.Reason,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePromptNext handles the prompt_next tool call.
func (h *Handlers) HandlePromptNext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.NextInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.NextPrompt(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdateList handles the update_list tool call.
func (h *Handlers) HandleUpdateList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.ListInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.List(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdateGet handles the update_get tool call.
func (h *Handlers) HandleUpdateGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Get(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(UpdateResponse{Update: result})
}

// HandleUpdateCurrent handles the update_current tool call.
func (h *Handlers) HandleUpdateCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.svc.Current(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(UpdateResponse{Update: result})
}

// HandleUpdateSelect handles the update_select tool call.
func (h *Handlers) HandleUpdateSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Select(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(UpdateResponse{Update: result})
}

// HandleUpdateDelete handles the update_delete tool call.
func (h *Handlers) HandleUpdateDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Delete(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHeuristicList handles the heuristic_list tool call.
func (h *Handlers) HandleHeuristicList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.HeuristicsInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Heuristics(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleQuickEditCreate handles the quickedit_create tool call.
func (h *Handlers) HandleQuickEditCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.QuickEditInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.QuickEdit(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the notepad_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.ExportInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Export(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the notepad_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	// Map to ops input
	mode := ops.ImportModeError
	switch input.Mode {
	case "", "error":
	case "replace":
		mode = ops.ImportModeReplace
	case "rename":
		mode = ops.ImportModeRename
	default:
		return errorResult(errors.NewInvalidRequest("mode must be one of: error, replace, rename")), nil
	}

	result, err := h.svc.Import(ctx, ops.ImportInput{
		Path: input.Path,
		Mode: mode,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// INTERNAL errors carry a generic message and no details.
func errorResult(err error) *mcp.CallToolResult {
	ne := errors.As(err)

	errorObj := map[string]any{
		"code":    ne.Code,
		"message": ne.Message,
		"status":  ne.Status,
	}
	if ne.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if ne.Details != nil {
		errorObj["details"] = ne.Details
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
