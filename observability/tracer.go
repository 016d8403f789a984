package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/pidl-project/pidl/pevent"
)

const tracerName = "pidl"

// OTelTracer starts one span per task and one span per action, subscribing
// to a Pipeline's EventEmitter.
//
// The pipeline's action_start/action_end events carry only the action's
// string form, not its owning task name, so action spans are recorded as
// siblings of task spans under the tracer's root context rather than as
// children of the currently running task's span.
type OTelTracer struct {
	tracer  oteltrace.Tracer
	rootCtx context.Context

	mu          sync.Mutex
	taskSpans   map[string]oteltrace.Span
	actionSpans map[string]oteltrace.Span
}

// NewOTelTracer constructs a tracer using provider's named tracer. A nil
// provider falls back to the globally configured provider
// (otel.GetTracerProvider()).
func NewOTelTracer(provider oteltrace.TracerProvider, rootCtx context.Context) *OTelTracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	return &OTelTracer{
		tracer:      provider.Tracer(tracerName),
		rootCtx:     rootCtx,
		taskSpans:   make(map[string]oteltrace.Span),
		actionSpans: make(map[string]oteltrace.Span),
	}
}

// Attach subscribes this tracer to task/action events.
func (t *OTelTracer) Attach(emitter *pevent.Emitter) {
	emitter.On("task_start", t.onTaskStart)
	emitter.On("task_end", t.onTaskEnd)
	emitter.On("action_start", t.onActionStart)
	emitter.On("action_end", t.onActionEnd)
}

func (t *OTelTracer) onTaskStart(event string, args ...interface{}) {
	name, _ := args[0].(string)
	_, span := t.tracer.Start(t.rootCtx, "task:"+name)

	t.mu.Lock()
	t.taskSpans[name] = span
	t.mu.Unlock()
}

func (t *OTelTracer) onTaskEnd(event string, args ...interface{}) {
	name, _ := args[0].(string)

	t.mu.Lock()
	span, ok := t.taskSpans[name]
	delete(t.taskSpans, name)
	t.mu.Unlock()

	if !ok {
		return
	}
	span.SetStatus(codes.Ok, "")
	span.End()
}

func (t *OTelTracer) onActionStart(event string, args ...interface{}) {
	actionString, _ := args[0].(string)
	_, span := t.tracer.Start(t.rootCtx, "action:"+actionString)

	t.mu.Lock()
	t.actionSpans[actionString] = span
	t.mu.Unlock()
}

func (t *OTelTracer) onActionEnd(event string, args ...interface{}) {
	actionString, _ := args[0].(string)

	t.mu.Lock()
	span, ok := t.actionSpans[actionString]
	delete(t.actionSpans, actionString)
	t.mu.Unlock()

	if !ok {
		return
	}
	span.SetStatus(codes.Ok, "")
	span.End()
}
