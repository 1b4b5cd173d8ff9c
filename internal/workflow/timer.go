package workflow

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
)

// Post meta keys of the Timer filter.
const (
	MetaKeyPostStatusTrigger = "_psppno_pubtrigger"
	MetaKeyPostStatusAmount  = "_psppno_pubamount"
	MetaKeyPostStatusUnit    = "_psppno_pubunit"
)

// Values stored when the form omits a field.
const (
	DefaultTrigger = "before"
	DefaultAmount  = "1"
	DefaultUnit    = "hour"
)

// Timer delays or advances a notification relative to the publish event.
type Timer struct {
	baseFilter
}

func NewTimer(stepName string, meta MetaStore, r Renderer) *Timer {
	return &Timer{baseFilter{stepName: stepName, meta: meta, renderer: r}}
}

// FieldName is the form name prefix of the timer fields.
func (t *Timer) FieldName() string {
	return fmt.Sprintf("publishpress_notif[%s_filters][timer]", t.stepName)
}

func (t *Timer) field(name string) string {
	return t.FieldName() + "[" + name + "]"
}

// Render returns the timer form populated with the stored values.
func (t *Timer) Render(ctx context.Context, postID uint64) (template.HTML, error) {
	values := map[string]string{}
	for name, key := range map[string]string{
		"trigger": MetaKeyPostStatusTrigger,
		"amount":  MetaKeyPostStatusAmount,
		"unit":    MetaKeyPostStatusUnit,
	} {
		v, err := t.single(ctx, postID, key)
		if err != nil {
			return "", fmt.Errorf("load timer %s: %w", name, err)
		}
		values[name] = v
	}

	out, err := t.renderer.Render("workflow_filter_timer", map[string]any{
		"Name": t.FieldName(),
		"ID":   fmt.Sprintf("publishpress_notif_%s_filters_timer", t.stepName),
		"Labels": map[string]string{
			"trigger": "Trigger",
			"amount":  "Amount",
			"before":  "Before",
			"after":   "After",
			"unit":    "Unit of timer",
			"hour":    "Hours",
			"day":     "Days",
			"week":    "Weeks",
		},
		"Values": values,
	})
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil
}

// SaveMetaboxData stores the submitted trigger, amount and unit. Absent
// fields fall back to before, 1 and hour; values are not validated.
func (t *Timer) SaveMetaboxData(ctx context.Context, postID uint64, form url.Values) error {
	fields := []struct{ name, key, def string }{
		{"trigger", MetaKeyPostStatusTrigger, DefaultTrigger},
		{"amount", MetaKeyPostStatusAmount, DefaultAmount},
		{"unit", MetaKeyPostStatusUnit, DefaultUnit},
	}
	for _, f := range fields {
		value := f.def
		if form.Has(t.field(f.name)) {
			value = form.Get(t.field(f.name))
		}
		if err := t.meta.Update(ctx, postID, f.key, []string{value}); err != nil {
			return fmt.Errorf("save timer %s: %w", f.name, err)
		}
	}
	return nil
}

// RunWorkflowQueryArgs requires the recorded publish status to match the
// transition's new status.
func (t *Timer) RunWorkflowQueryArgs(ctx context.Context, q QueryArgs, a ActionArgs) (QueryArgs, error) {
	q, err := q.WithGroup(MetaClause{
		Key:     "publish",
		Value:   a.NewStatus,
		Type:    TypeChar,
		Compare: "=",
	})
	if err != nil {
		return q, err
	}
	return t.baseFilter.RunWorkflowQueryArgs(ctx, q, a)
}
