package workflow

import (
	"context"
	"html/template"
	"net/url"

	"github.com/iliyamo/editorial-roles/internal/hooks"
)

// Hooks are the extension points events and filters subscribe to.
type Hooks struct {
	// EventsMetaKeys collects the meta key marking each event as selected,
	// mapped to the event label.
	EventsMetaKeys *hooks.Filter[map[string]string, struct{}]
	// RunWorkflowQueryArgs augments the scheduler's query arguments.
	RunWorkflowQueryArgs *hooks.Filter[QueryArgs, ActionArgs]
}

func NewHooks() *Hooks {
	return &Hooks{
		EventsMetaKeys:       hooks.NewFilter[map[string]string, struct{}]("events_metakeys"),
		RunWorkflowQueryArgs: hooks.NewFilter[QueryArgs, ActionArgs]("run_workflow_query_args"),
	}
}

// MetaStore is per-post key/value storage with list values.
type MetaStore interface {
	Get(ctx context.Context, postID uint64, key string) ([]string, error)
	Update(ctx context.Context, postID uint64, key string, values []string) error
}

// Renderer renders a named template with vars.
type Renderer interface {
	Render(name string, vars any) (string, error)
}

// Filter narrows when workflows matching an event should run.
type Filter interface {
	Render(ctx context.Context, postID uint64) (template.HTML, error)
	SaveMetaboxData(ctx context.Context, postID uint64, form url.Values) error
	RunWorkflowQueryArgs(ctx context.Context, q QueryArgs, a ActionArgs) (QueryArgs, error)
}

// baseFilter carries what every filter of a step shares.
type baseFilter struct {
	stepName string
	meta     MetaStore
	renderer Renderer
}

// RunWorkflowQueryArgs adds nothing.
func (b baseFilter) RunWorkflowQueryArgs(_ context.Context, q QueryArgs, _ ActionArgs) (QueryArgs, error) {
	return q, nil
}

func (b baseFilter) single(ctx context.Context, postID uint64, key string) (string, error) {
	values, err := b.meta.Get(ctx, postID, key)
	if err != nil || len(values) == 0 {
		return "", err
	}
	return values[0], nil
}
