package workflow

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"slices"
)

// Publishing event identifiers.
const (
	PublishingName          = "publishing"
	PublishingAction        = "publishing_reminder"
	MetaKeySelected         = "_psppno_evtpublishing"
	MetaValueSelected       = "publishing"
	eventAttrPrefix         = "event"
	eventSelectionFieldName = "publishpress_notif[event][]"
)

// Publishing fires before or after content is published.
type Publishing struct {
	name     string
	label    string
	stepName string
	meta     MetaStore
	renderer Renderer
	filters  []Filter
}

// NewPublishing builds the event with its filters and subscribes it to h.
func NewPublishing(h *Hooks, meta MetaStore, r Renderer) *Publishing {
	p := &Publishing{
		name:     PublishingName,
		label:    "Before or after the content is published",
		stepName: eventAttrPrefix + "_" + PublishingName,
		meta:     meta,
		renderer: r,
	}
	p.filters = []Filter{NewTimer(p.stepName, meta, r)}

	h.EventsMetaKeys.Add(p.FilterEventsMetaKeys)
	h.RunWorkflowQueryArgs.Add(p.FilterRunWorkflowQueryArgs)
	return p
}

func (p *Publishing) Name() string     { return p.name }
func (p *Publishing) Label() string    { return p.label }
func (p *Publishing) StepName() string { return p.stepName }

// Filters returns the event's filters in evaluation order.
func (p *Publishing) Filters() []Filter { return slices.Clone(p.filters) }

// FilterEventsMetaKeys adds the selected-flag key of this event.
func (p *Publishing) FilterEventsMetaKeys(_ context.Context, keys map[string]string, _ struct{}) (map[string]string, error) {
	out := make(map[string]string, len(keys)+1)
	for k, v := range keys {
		out[k] = v
	}
	out[MetaKeySelected] = p.label
	return out, nil
}

// FilterRunWorkflowQueryArgs restricts publishing reminders to workflows
// that selected this event, then lets each filter add its conditions.
func (p *Publishing) FilterRunWorkflowQueryArgs(ctx context.Context, q QueryArgs, a ActionArgs) (QueryArgs, error) {
	if a.Action != PublishingAction {
		return q, nil
	}
	q, err := q.With(MetaClause{
		Key:     MetaKeySelected,
		Value:   1,
		Type:    TypeBool,
		Compare: "=",
	})
	if err != nil {
		return q, err
	}
	for _, f := range p.filters {
		if q, err = f.RunWorkflowQueryArgs(ctx, q, a); err != nil {
			return q, err
		}
	}
	return q, nil
}

// Selected reports whether the workflow postID uses this event.
func (p *Publishing) Selected(ctx context.Context, postID uint64) (bool, error) {
	values, err := p.meta.Get(ctx, postID, MetaKeySelected)
	if err != nil {
		return false, err
	}
	return len(values) > 0 && values[0] == "1", nil
}

// Render returns the event checkbox followed by the markup of each filter.
func (p *Publishing) Render(ctx context.Context, postID uint64) (string, error) {
	selected, err := p.Selected(ctx, postID)
	if err != nil {
		return "", fmt.Errorf("load publishing selection: %w", err)
	}
	filters := make([]template.HTML, 0, len(p.filters))
	for _, f := range p.filters {
		html, err := f.Render(ctx, postID)
		if err != nil {
			return "", err
		}
		filters = append(filters, html)
	}
	return p.renderer.Render("workflow_event_publishing", map[string]any{
		"FieldName": eventSelectionFieldName,
		"Value":     MetaValueSelected,
		"ID":        "publishpress_notif_" + p.stepName,
		"Label":     p.label,
		"Selected":  selected,
		"Filters":   filters,
	})
}

// SaveMetaboxData stores whether the event was ticked and saves every filter.
func (p *Publishing) SaveMetaboxData(ctx context.Context, postID uint64, form url.Values) error {
	selected := "0"
	if slices.Contains(form[eventSelectionFieldName], MetaValueSelected) {
		selected = "1"
	}
	if err := p.meta.Update(ctx, postID, MetaKeySelected, []string{selected}); err != nil {
		return fmt.Errorf("save publishing selection: %w", err)
	}
	for _, f := range p.filters {
		if err := f.SaveMetaboxData(ctx, postID, form); err != nil {
			return err
		}
	}
	return nil
}
