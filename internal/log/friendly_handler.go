package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// Keys rendered right below the summary line, in this order. Everything else
// is sorted alphabetically after them.
var leadingKeys = []string{"suggestion", "operation", "status"}

// NewFriendlyErrorHandler returns a slog.Handler that renders error records in a
// concise, human-friendly format suitable for console output.
func NewFriendlyErrorHandler(w io.Writer) slog.Handler {
	return &friendlyHandler{w: w}
}

type friendlyHandler struct {
	w      io.Writer
	attrs  []slog.Attr
	groups []string
}

type attrEntry struct {
	key   string
	value string
}

func (h *friendlyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *friendlyHandler) Handle(_ context.Context, record slog.Record) error {
	entries := h.collectEntries(record)
	byKey := make(map[string]string, len(entries))
	for _, entry := range entries {
		byKey[entry.key] = entry.value
	}

	summary := strings.TrimSpace(record.Message)
	if summary == "" {
		summary = byKey["error"]
	}
	if summary == "" {
		summary = "an unknown error occurred"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", summary)

	skip := map[string]bool{"error": true}
	for _, key := range leadingKeys {
		if value := byKey[key]; value != "" {
			writeEntry(&sb, attrEntry{key: key, value: value})
		}
		skip[key] = true
	}

	others := make([]attrEntry, 0, len(entries))
	for _, entry := range entries {
		if skip[entry.key] || entry.value == "" {
			continue
		}
		others = append(others, entry)
	}
	sort.SliceStable(others, func(i, j int) bool {
		return others[i].key < others[j].key
	})
	for _, entry := range others {
		writeEntry(&sb, entry)
	}

	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *friendlyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *friendlyHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *friendlyHandler) clone() *friendlyHandler {
	return &friendlyHandler{
		w:      h.w,
		attrs:  append([]slog.Attr{}, h.attrs...),
		groups: append([]string{}, h.groups...),
	}
}

func (h *friendlyHandler) collectEntries(record slog.Record) []attrEntry {
	entries := make([]attrEntry, 0, len(h.attrs)+record.NumAttrs())
	add := func(attr slog.Attr) bool {
		entries = append(entries, attrEntry{
			key:   h.fullKey(attr.Key),
			value: valueToString(attr.Value.Resolve()),
		})
		return true
	}
	for _, attr := range h.attrs {
		add(attr)
	}
	record.Attrs(add)
	return entries
}

func (h *friendlyHandler) fullKey(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(append(append([]string{}, h.groups...), key), ".")
}

func valueToString(val slog.Value) string {
	switch val.Kind() {
	case slog.KindGroup:
		parts := make([]string, 0, len(val.Group()))
		for _, attr := range val.Group() {
			parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, valueToString(attr.Value.Resolve())))
		}
		return strings.Join(parts, ", ")
	case slog.KindAny:
		if err, ok := val.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(val.Any())
	default:
		return val.String()
	}
}

func writeEntry(sb *strings.Builder, entry attrEntry) {
	lines := strings.Split(strings.TrimSpace(entry.value), "\n")
	fmt.Fprintf(sb, "  %s: %s\n", entry.key, strings.TrimSpace(lines[0]))
	for _, line := range lines[1:] {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			fmt.Fprintf(sb, "    %s\n", trimmed)
		}
	}
}
