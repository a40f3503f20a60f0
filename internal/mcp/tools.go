package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = map[string]any{"type": "string"}

var ideaSubmitToolDef = mcp.NewTool("idea_submit",
	mcp.WithDescription("Plan a feature idea into a short checklist of verifiable steps and a first copy-paste patch prompt. "+
		"The new update becomes current. Fails with BUSY while another plan or refinement is running."),
	mcp.WithString("idea", mcp.Required(), mcp.Description("The feature idea, one or two sentences")),
	mcp.WithString("X", mcp.Description("Optional extra context (e.g. stack or framework)")),
	mcp.WithString("Y", mcp.Description("Optional extra context (e.g. constraints)")),
	mcp.WithString("file_tree", mcp.Description("Optional file tree of the target repo")),
	mcp.WithString("snippets", mcp.Description("Optional relevant code snippets")),
	mcp.WithString("acceptance_criteria", mcp.Description("Optional acceptance criteria")),
	mcp.WithString("tiny_test", mcp.Description("Optional smallest test that proves the change")),
	mcp.WithArray("file_list", mcp.Description("Optional files the change touches"), mcp.Items(stringItems)),
)

var stepPassToolDef = mcp.NewTool("step_pass",
	mcp.WithDescription("Mark a pending checklist step as passed. Records a heuristic from the step. "+
		"Steps that already have a verdict are left unchanged."),
	mcp.WithString("step", mcp.Required(), mcp.Description("Step id or 1-based position")),
	mcp.WithString("update_id", mcp.Description("Update id (default: current update)")),
)

var stepFailToolDef = mcp.NewTool("step_fail",
	mcp.WithDescription("Mark a pending checklist step as failed with a reason. The update becomes failed."),
	mcp.WithString("step", mcp.Required(), mcp.Description("Step id or 1-based position")),
	mcp.WithString("reason", mcp.Required(), mcp.Description("What went wrong, e.g. \"button not visible\"")),
	mcp.WithString("update_id", mcp.Description("Update id (default: current update)")),
)

var promptNextToolDef = mcp.NewTool("prompt_next",
	mcp.WithDescription("Produce the next prompt: a refinement if any step failed, else a patch prompt for the next pending step. "+
		"Returns mode=complete when every step passed."),
	mcp.WithString("update_id", mcp.Description("Update id (default: current update)")),
)

var updateListToolDef = mcp.NewTool("update_list",
	mcp.WithDescription("List updates, most recent first."),
	mcp.WithString("status", mcp.Description("Filter by status"), mcp.Enum("pending", "pass", "fail")),
	mcp.WithString("type", mcp.Description("Filter by type"), mcp.Enum("normal", "quickEdit")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var updateGetToolDef = mcp.NewTool("update_get",
	mcp.WithDescription("Get one update with its plan, checklist, and current prompt."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Update id")),
)

var updateCurrentToolDef = mcp.NewTool("update_current",
	mcp.WithDescription("Get the current update, or null when none is selected."),
)

var updateSelectToolDef = mcp.NewTool("update_select",
	mcp.WithDescription("Make an update current."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Update id")),
)

var updateDeleteToolDef = mcp.NewTool("update_delete",
	mcp.WithDescription("Delete an update. Clears the current selection if it pointed to this update."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Update id")),
)

var heuristicListToolDef = mcp.NewTool("heuristic_list",
	mcp.WithDescription("List learned patterns from passed steps, highest score first."),
	mcp.WithNumber("limit", mcp.Description("Max items (default 50, max 500)")),
)

var quickEditCreateToolDef = mcp.NewTool("quickedit_create",
	mcp.WithDescription("Record a single narrow text or style change and return its micro prompt and diff preview. "+
		"No model call is made."),
	mcp.WithString("file", mcp.Required(), mcp.Description("File path")),
	mcp.WithString("before", mcp.Required(), mcp.Description("Exact text to replace")),
	mcp.WithString("after", mcp.Required(), mcp.Description("Replacement text")),
	mcp.WithString("anchor", mcp.Description("Component or function that contains the text")),
	mcp.WithString("scope", mcp.Description("Which occurrences to change (default single)"), mcp.Enum("single", "selected", "all")),
	mcp.WithString("source", mcp.Description("Optional file content, used to count occurrences")),
)

var exportToolDef = mcp.NewTool("notepad_export",
	mcp.WithDescription("Export all updates and learned heuristics to a JSONL file. "+
		"Without a path the file goes to ~/.notepad/exports/<label>-<timestamp>.jsonl."),
	mcp.WithString("path", mcp.Description("Output file path (default: exports directory)")),
	mcp.WithString("label", mcp.Description("File name prefix when no path is given (default notepad)")),
)

var importToolDef = mcp.NewTool("notepad_import",
	mcp.WithDescription("Import updates and heuristics from a JSONL export. "+
		"Mode error is all-or-nothing and fails on any id collision, including repeated ids in the file; "+
		"replace overwrites existing updates; rename stores colliding updates under fresh ids."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Export file path")),
	mcp.WithString("mode", mcp.Description("Collision mode (default error)"), mcp.Enum("error", "replace", "rename")),
)
