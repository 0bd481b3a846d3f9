// Package observe carries the process logger and tracer.
package observe

import (
	"context"
	"io"

	"github.com/felixgeelhaar/bolt/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "trainhub"

var tracer = otel.Tracer(serviceName)

type Observer struct {
	log *bolt.Logger
}

// New returns an Observer writing human-readable lines to out.
// Unless verbose is set only warnings and errors are written.
func New(out io.Writer, verbose bool) *Observer {
	l := bolt.New(bolt.NewConsoleHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return &Observer{log: l}
}

// NewJSON is New with one JSON object per line.
func NewJSON(out io.Writer, verbose bool) *Observer {
	l := bolt.New(bolt.NewJSONHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return &Observer{log: l}
}

// Discard drops everything. Used where a caller passes no Observer.
func Discard() *Observer {
	return NewJSON(io.Discard, false)
}

func (o *Observer) Log() *bolt.Logger {
	return o.log
}

// StartSpan opens a span tagged with the service name and attrs.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attribute.String("service.name", serviceName))
	all = append(all, attrs...)
	return tracer.Start(ctx, name, trace.WithAttributes(all...))
}

// Fail records err on span and logs it at error level with the span name.
func (o *Observer) Fail(span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	o.log.Error().Str("op", op).Err(err).Msg("operation failed")
}
