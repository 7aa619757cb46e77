package operation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/crewctl/internal/log"
	"github.com/tombee/crewctl/internal/operation/transport"
	"github.com/tombee/crewctl/internal/tracing"
)

const tracerName = "github.com/tombee/crewctl/internal/operation"

// finishTimeout bounds the write of the terminal state. The write is
// detached from the caller's context so a cancelled invocation still ends
// Failed rather than Pending.
const finishTimeout = 10 * time.Second

// Invoker runs operations against a transport and records the outcome in a
// Store. It holds no lock of its own; concurrency control lives in the Store.
type Invoker struct {
	registry  *Registry
	store     Store
	transport transport.Client
	logger    *slog.Logger
	tracer    trace.Tracer
	newID     func() string
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithLogger sets the operator-facing logger. Transport failure details are
// written here and nowhere else.
func WithLogger(logger *slog.Logger) InvokerOption {
	return func(i *Invoker) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithTracer overrides the tracer. Default: the global provider's tracer.
func WithTracer(tracer trace.Tracer) InvokerOption {
	return func(i *Invoker) {
		if tracer != nil {
			i.tracer = tracer
		}
	}
}

// WithRequestIDGenerator overrides request ID generation.
func WithRequestIDGenerator(fn func() string) InvokerOption {
	return func(i *Invoker) {
		if fn != nil {
			i.newID = fn
		}
	}
}

// NewInvoker creates an Invoker.
func NewInvoker(registry *Registry, store Store, client transport.Client, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		registry:  registry,
		store:     store,
		transport: client,
		logger:    log.Discard(),
		tracer:    otel.Tracer(tracerName),
		newID:     func() string { return tracing.NewCorrelationID().String() },
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = log.WithComponent(i.logger, "invoker")
	return i
}

// Registry returns the registry the invoker resolves names against.
func (i *Invoker) Registry() *Registry {
	return i.registry
}

// Store returns the store the invoker records outcomes in.
func (i *Invoker) Store() Store {
	return i.store
}

// Invoke runs the named operation with its current input and records the
// outcome.
//
// Transport failures are recorded as a Failed state with the definition's
// fixed error message and are not returned. Invoke returns an error only for
// an unknown operation (state untouched) or when the store itself fails. A
// response that arrives after the operation was invoked again is discarded.
func (i *Invoker) Invoke(ctx context.Context, name string) error {
	def, err := i.registry.Resolve(name)
	if err != nil {
		return err
	}

	requestID := i.newID()
	logger := log.WithOperation(i.logger, def.Name, requestID)
	if parent := tracing.FromContextOrEmpty(ctx); parent != "" {
		logger = logger.With(log.ParentIDKey, string(parent))
	}
	// The outgoing X-Correlation-ID is always the stored request ID.
	ctx = tracing.ToContext(ctx, tracing.CorrelationID(requestID))

	ctx, span := i.tracer.Start(ctx, "operation.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("operation.name", def.Name),
			attribute.String("operation.path", def.Path),
			attribute.String("operation.request_id", requestID),
		),
	)
	defer span.End()

	state, err := i.store.Begin(ctx, def.Name, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return err
	}

	logger.Debug("invoking operation", log.String(log.PathKey, def.Path))

	start := time.Now()
	result, sendErr := i.transport.Send(ctx, def.Path, def.BuildPayload(state.Input))
	elapsed := time.Since(start)

	status := StatusSucceeded
	errType := ""
	if sendErr != nil {
		status = StatusFailed
		errType = errorType(sendErr)

		// The stored message is fixed. The detail goes to the operator log
		// below the CLI's default level so it never reaches the terminal.
		logger.Info("operation failed",
			log.Error(sendErr),
			log.String("error_type", errType),
			log.Duration("elapsed", elapsed.Milliseconds()),
		)
		span.RecordError(sendErr)
		span.SetStatus(codes.Error, def.ErrorMessage)
	} else {
		logger.Debug("operation succeeded", log.Duration("elapsed", elapsed.Milliseconds()))
		span.SetStatus(codes.Ok, "")
	}

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if sendErr != nil {
		err = i.store.SetError(finishCtx, def.Name, requestID, def.ErrorMessage)
	} else {
		err = i.store.SetResult(finishCtx, def.Name, requestID, result)
	}

	span.SetAttributes(attribute.String("operation.status", string(status)))
	recordMetrics(def.Name, status, elapsed.Seconds(), errType)

	if errors.Is(err, ErrStaleRequest) {
		logger.Debug("discarding stale response", log.String(log.StatusKey, string(status)))
		recordStale(def.Name)
		return nil
	}
	return err
}

// InvokeAsync runs Invoke in a new goroutine. The returned channel receives
// Invoke's error (nil on success) and is then closed.
func (i *Invoker) InvokeAsync(ctx context.Context, name string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- i.Invoke(ctx, name)
	}()
	return done
}

// errorType classifies a transport error for metrics and logs.
func errorType(err error) string {
	var terr *transport.TransportError
	if errors.As(err, &terr) {
		return string(terr.Type)
	}
	if errors.Is(err, context.Canceled) {
		return string(transport.ErrorTypeCancelled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(transport.ErrorTypeTimeout)
	}
	return "unknown"
}
