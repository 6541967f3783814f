package log

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

type httpLogContextKey struct{}

// HTTPLogContext carries workflow metadata that is attached to every HTTP
// log record emitted while the context is in flight.
type HTTPLogContext struct {
	CommandPath string

	RunID         string
	WorkflowPhase string
	IntegrationID string
	Blueprint     string
	// Batch is 1-based; zero means "not inside a batch".
	Batch   int
	Batches int
}

var HTTPLogContextKey = httpLogContextKey{}

// WithHTTPLogContext merges non-empty fields from update into ctx.
func WithHTTPLogContext(ctx context.Context, update HTTPLogContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	current := HTTPLogContextFromContext(ctx)
	mergeString(&current.CommandPath, update.CommandPath)
	mergeString(&current.RunID, update.RunID)
	mergeString(&current.WorkflowPhase, update.WorkflowPhase)
	mergeString(&current.IntegrationID, update.IntegrationID)
	mergeString(&current.Blueprint, update.Blueprint)
	if update.Batch > 0 {
		current.Batch = update.Batch
	}
	if update.Batches > 0 {
		current.Batches = update.Batches
	}

	return context.WithValue(ctx, HTTPLogContextKey, current)
}

// HTTPLogContextFromContext extracts HTTP logging metadata from ctx.
func HTTPLogContextFromContext(ctx context.Context) HTTPLogContext {
	if ctx == nil {
		return HTTPLogContext{}
	}
	if value, ok := ctx.Value(HTTPLogContextKey).(HTTPLogContext); ok {
		return value
	}
	return HTTPLogContext{}
}

// HTTPLogContextAttrs converts context metadata to slog attributes.
func HTTPLogContextAttrs(ctx context.Context) []slog.Attr {
	meta := HTTPLogContextFromContext(ctx)
	attrs := make([]slog.Attr, 0, 7)

	appendStringAttr(&attrs, "command_path", meta.CommandPath)
	appendStringAttr(&attrs, "run_id", meta.RunID)
	appendStringAttr(&attrs, "workflow_phase", meta.WorkflowPhase)
	appendStringAttr(&attrs, "integration_id", meta.IntegrationID)
	appendStringAttr(&attrs, "blueprint", meta.Blueprint)
	if meta.Batch > 0 {
		attrs = append(attrs, slog.String("batch", strconv.Itoa(meta.Batch)+"/"+strconv.Itoa(meta.Batches)))
	}

	return attrs
}

func mergeString(target *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*target = trimmed
	}
}

func appendStringAttr(attrs *[]slog.Attr, key, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*attrs = append(*attrs, slog.String(key, trimmed))
	}
}
