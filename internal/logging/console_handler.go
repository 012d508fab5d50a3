package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// prettyHandler renders one header line per record followed by indented
// fields. Info-level records show curated labels; debug records show raw
// keys. Handlers derived through WithAttrs share the writer lock and the
// repeated-field memory.
type prettyHandler struct {
	shared    *consoleShared
	level     *slog.LevelVar
	addSource bool
	prefix    string
	attrs     []kv
}

type consoleShared struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[string]map[string]string
}

type kv struct {
	key   string
	value slog.Value
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{
		shared:    &consoleShared{w: w, seen: make(map[string]map[string]string)},
		level:     lvl,
		addSource: addSource,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = appendFlat(append([]kv(nil), h.attrs...), h.prefix, attrs)
	return &clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	fields := append([]kv(nil), h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		fields = appendFlat(fields, h.prefix, []slog.Attr{a})
		return true
	})
	fields = lastValueWins(fields)

	// Component, run, and stage move into the header; run and stage stay in
	// the field list so debug output keeps them verbatim.
	var component, runID, stage string
	rest := fields[:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = attrString(f.value)
			continue
		case FieldRunID:
			runID = attrString(f.value)
		case FieldStage:
			stage = attrString(f.value)
		}
		rest = append(rest, f)
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s", formatTimestamp(ts), levelLabel(record.Level))
	if component != "" {
		fmt.Fprintf(&buf, " [%s]", component)
	}
	if subject := runSubject(runID, stage); subject != "" {
		buf.WriteString(" " + subject)
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf.WriteString(" – " + msg)
	if src := record.Source(); h.addSource && src != nil && src.File != "" {
		fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
	}
	buf.WriteByte('\n')

	h.shared.mu.Lock()
	defer h.shared.mu.Unlock()
	if record.Level < slog.LevelInfo {
		for _, f := range rest {
			fmt.Fprintf(&buf, "    %s: %s\n", f.key, formatValue(f.value))
		}
	} else {
		scope := runID
		if scope == "" {
			scope = component
		}
		shown, hidden := selectInfoFields(rest)
		for _, f := range h.shared.unchanged(scope, shown, record.Level) {
			fmt.Fprintf(&buf, "    - %s: %s\n", f.label, f.value)
		}
		switch {
		case hidden == 1:
			buf.WriteString("    + 1 more field hidden\n")
		case hidden > 1:
			fmt.Fprintf(&buf, "    + %d more fields hidden\n", hidden)
		}
	}
	_, err := h.shared.w.Write(buf.Bytes())
	return err
}

// unchanged drops info fields whose value matches the last record printed
// for scope. Warnings and errors print every field and refresh the memory.
// Callers hold s.mu.
func (s *consoleShared) unchanged(scope string, fields []infoField, level slog.Level) []infoField {
	if scope == "" {
		return fields
	}
	last := s.seen[scope]
	if last == nil {
		last = make(map[string]string)
		s.seen[scope] = last
	}
	out := fields[:0:0]
	for _, f := range fields {
		prev, ok := last[f.label]
		last[f.label] = f.value
		if level <= slog.LevelInfo && ok && prev == f.value && !alwaysShowLabel(f.label) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// runSubject renders "Run 1a2b3c4d (upload)". Run IDs are cut to eight
// characters.
func runSubject(runID, stage string) string {
	runID = strings.TrimSpace(runID)
	stage = strings.TrimSpace(stage)
	if len(runID) > 8 {
		runID = runID[:8]
	}
	switch {
	case runID == "":
		return stage
	case stage == "":
		return "Run " + runID
	default:
		return "Run " + runID + " (" + stage + ")"
	}
}

// appendFlat resolves attrs and appends them with group names joined by
// dots. Empty attrs are dropped.
func appendFlat(dst []kv, prefix string, attrs []slog.Attr) []kv {
	for _, a := range attrs {
		if a.Equal(slog.Attr{}) {
			continue
		}
		v := a.Value.Resolve()
		if v.Kind() == slog.KindGroup {
			next := prefix
			if a.Key != "" {
				next = prefix + a.Key + "."
			}
			dst = appendFlat(dst, next, v.Group())
			continue
		}
		key := prefix + a.Key
		if a.Key == "" {
			key = strings.TrimSuffix(prefix, ".")
		}
		dst = append(dst, kv{key: key, value: v})
	}
	return dst
}

// lastValueWins keeps the first position of each key with its latest value.
func lastValueWins(fields []kv) []kv {
	index := make(map[string]int, len(fields))
	out := make([]kv, 0, len(fields))
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
