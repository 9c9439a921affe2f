package database

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/utafrali/AppStoreGo/pkg/logger"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func spanAttrs(s tracetest.SpanStub) map[string]string {
	out := make(map[string]string)
	for _, a := range s.Attributes {
		out[string(a.Key)] = a.Value.Emit()
	}
	return out
}

func TestTraceQuery_Success(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "ListApps", "SELECT id FROM apps")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.ListApps", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, map[string]string{
		"db.system":    SystemPostgres,
		"db.operation": "ListApps",
		"db.statement": "SELECT id FROM apps",
	}, spanAttrs(spans[0]))
}

func TestTraceQueryFor_ErrorAndSystem(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQueryFor(context.Background(), SystemSQLite, "SaveApp", "UPDATE apps SET rating = ?")
	end(errors.New("database is locked"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, SystemSQLite, spanAttrs(spans[0])["db.system"])
	assert.NotEmpty(t, spans[0].Events)
}

func TestTraceQuery_ChildOfCallerSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "catalog.refresh")
	_, end := TraceQuery(ctx, "ListApps", "SELECT 1")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSlowQueryLogging(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, logger.NewText("debug", &buf))

	_, end := TraceQuery(context.Background(), "ListApps", "SELECT * FROM apps")
	end(errors.New("canceling statement"))

	out := buf.String()
	assert.Contains(t, out, "slow query")
	assert.Contains(t, out, "ListApps")
	assert.Contains(t, out, "canceling statement")

	buf.Reset()
	SetSlowQueryLogging(time.Hour, logger.NewText("debug", &buf))
	_, end = TraceQuery(context.Background(), "ListApps", "SELECT 1")
	end(nil)
	assert.Empty(t, buf.String())

	SetSlowQueryLogging(0, nil)
	_, end = TraceQuery(context.Background(), "ListApps", "SELECT 1")
	assert.NotPanics(t, func() { end(nil) })
}

func TestSetSlowQueryLogging_Concurrent(t *testing.T) {
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	l := logger.Discard()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, l)
		}
	}()
	for i := 0; i < 100; i++ {
		slowQueryConfig()
	}
	<-done
}
