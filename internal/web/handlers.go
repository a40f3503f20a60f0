package web

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/llm"
	"github.com/hpungsan/notepad/internal/ops"
	"github.com/hpungsan/notepad/internal/update"
)

// Handlers contains HTTP route handlers for the API and web UI.
type Handlers struct {
	svc      *ops.Service
	planner  llm.Planner
	renderer *Renderer
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandlePlan handles POST /api/llm/plan. The proxy is stateless: nothing is
// stored and the generation guard does not apply.
func (h *Handlers) HandlePlan(w http.ResponseWriter, r *http.Request) {
	var req llm.PlanRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderProxyError(w, err)
		return
	}

	resp, err := h.planner.Plan(r.Context(), &req)
	if err != nil {
		renderProxyError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, resp)
}

// HandleRefine handles POST /api/llm/refine.
func (h *Handlers) HandleRefine(w http.ResponseWriter, r *http.Request) {
	var req llm.RefineRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderProxyError(w, err)
		return
	}

	resp, err := h.planner.Refine(r.Context(), &req)
	if err != nil {
		renderProxyError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, resp)
}

// HandleListUpdates handles GET /api/updates.
func (h *Handlers) HandleListUpdates(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.List(r.Context(), listInput(r))
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleSubmit handles POST /api/updates: plan an idea into a new update.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var input ops.SubmitInput
	if err := decodeBody(w, r, &input); err != nil {
		renderAPIError(w, err)
		return
	}

	result, err := h.svc.SubmitIdea(r.Context(), input)
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// HandleCurrent handles GET /api/updates/current.
func (h *Handlers) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Current(r.Context())
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]*update.Update{"update": u})
}

// HandleGetUpdate handles GET /api/updates/{id}.
func (h *Handlers) HandleGetUpdate(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]*update.Update{"update": u})
}

// HandleDeleteUpdate handles DELETE /api/updates/{id}.
func (h *Handlers) HandleDeleteUpdate(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleSelect handles POST /api/updates/{id}/select.
func (h *Handlers) HandleSelect(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Select(r.Context(), r.PathValue("id"))
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]*update.Update{"update": u})
}

// HandlePass handles POST /api/updates/{id}/steps/{step}/pass.
func (h *Handlers) HandlePass(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.MarkPass(r.Context(), ops.VerdictInput{
		UpdateID: r.PathValue("id"),
		Step:     r.PathValue("step"),
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleFail handles POST /api/updates/{id}/steps/{step}/fail with body {reason}.
func (h *Handlers) HandleFail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		renderAPIError(w, err)
		return
	}

	result, err := h.svc.MarkFail(r.Context(), ops.VerdictInput{
		UpdateID: r.PathValue("id"),
		Step:     r.PathValue("step"),
		Reason:   body.Reason,
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleNext handles POST /api/updates/{id}/next.
func (h *Handlers) HandleNext(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.NextPrompt(r.Context(), ops.NextInput{UpdateID: r.PathValue("id")})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleHeuristics handles GET /api/heuristics.
func (h *Handlers) HandleHeuristics(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Heuristics(r.Context(), ops.HeuristicsInput{
		Limit: parseIntParam(r, "limit", ops.DefaultHeuristicsLimit),
	})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleQuickEdit handles POST /api/quick-edits.
func (h *Handlers) HandleQuickEdit(w http.ResponseWriter, r *http.Request) {
	var input ops.QuickEditInput
	if err := decodeBody(w, r, &input); err != nil {
		renderAPIError(w, err)
		return
	}

	result, err := h.svc.QuickEdit(r.Context(), input)
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// HandleUpdatesPage handles GET /updates: the update history.
func (h *Handlers) HandleUpdatesPage(w http.ResponseWriter, r *http.Request) {
	input := listInput(r)
	result, err := h.svc.List(r.Context(), input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Updates",
			Version: h.renderer.version,
			Nav:     "updates",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Status:     input.Status,
		Type:       input.Type,
	})
}

// HandleUpdatePage handles GET /updates/{id}: one update with its checklist.
func (h *Handlers) HandleUpdatePage(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	cur, err := h.svc.Current(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   u.Summary,
			Version: h.renderer.version,
			Nav:     "updates",
		},
		Update:   u,
		PlanHTML: renderMarkdown(u.Plan),
		Progress: update.Progress(u),
		Current:  cur != nil && cur.ID == u.ID,
	})
}

// decodeBody reads a JSON request body into v. An empty body leaves v unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewInvalidRequest("request body too large")
		}
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func listInput(r *http.Request) ops.ListInput {
	q := r.URL.Query()
	return ops.ListInput{
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
