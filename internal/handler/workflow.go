package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/editorial-roles/internal/workflow"
)

// WorkflowHandler serves the publishing event editor of a workflow and the
// query-argument hook the scheduler calls.
type WorkflowHandler struct {
	Hooks      *workflow.Hooks
	Publishing *workflow.Publishing
}

func NewWorkflowHandler(h *workflow.Hooks, p *workflow.Publishing) *WorkflowHandler {
	if h == nil || p == nil {
		panic("nil dependency passed to NewWorkflowHandler")
	}
	return &WorkflowHandler{Hooks: h, Publishing: p}
}

func workflowID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// RenderPublishing returns the publishing event fieldset of workflow :id.
func (h *WorkflowHandler) RenderPublishing(c echo.Context) error {
	id, ok := workflowID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workflow id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	html, err := h.Publishing.Render(ctx, id)
	if err != nil {
		c.Logger().Errorf("render publishing %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render failed"})
	}
	return c.HTML(http.StatusOK, html)
}

// SavePublishing stores the submitted event selection and filter values of
// workflow :id, then sends the client back to the editor.
func (h *WorkflowHandler) SavePublishing(c echo.Context) error {
	id, ok := workflowID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workflow id"})
	}
	form, err := c.FormParams()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid form"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Publishing.SaveMetaboxData(ctx, id, form); err != nil {
		c.Logger().Errorf("save publishing %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.Redirect(http.StatusSeeOther, c.Request().URL.Path)
}

type runQueryArgsReq struct {
	QueryArgs  workflow.QueryArgs  `json:"query_args"`
	ActionArgs workflow.ActionArgs `json:"action_args"`
}

// RunQueryArgs passes the scheduler's query arguments through every
// subscriber of the run_workflow_query_args hook. Arguments come back in
// the shape they were sent, with any new meta conditions appended.
func (h *WorkflowHandler) RunQueryArgs(c echo.Context) error {
	var req runQueryArgsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	out, err := h.Hooks.RunWorkflowQueryArgs.Apply(c.Request().Context(), req.QueryArgs, req.ActionArgs)
	if err != nil {
		c.Logger().Errorf("run workflow query args: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "filter failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"query_args": out})
}

// EventMetaKeys lists the meta key of every registered event with its label.
func (h *WorkflowHandler) EventMetaKeys(c echo.Context) error {
	keys, err := h.Hooks.EventsMetaKeys.Apply(c.Request().Context(), map[string]string{}, struct{}{})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "filter failed"})
	}
	return c.JSON(http.StatusOK, keys)
}
