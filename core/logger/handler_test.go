package logger

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"log/slog"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func closeWriter(t *testing.T, aw *asyncWriter) {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "app")
	LogEvent(ctx, log, slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)
	ctx = WithState(ctx, "deadline")

	log := slog.New(handler).With("component", "flow")
	LogEvent(ctx, log, slog.LevelError, "flow.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.Int64("lead_id", 5),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"flow"`, `"event":"flow.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"user_id":22`, `"state":"deadline"`, `"lead_id":5`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	rawRID := "123:456:789"
	LogEvent(WithRID(Background(), rawRID), slog.New(handler), slog.LevelInfo, "rid.test")
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	rawRID := "12:34:56"
	LogEvent(WithRID(Background(), rawRID), slog.New(handler), slog.LevelInfo, "rid.test")
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", line)
	}
}

func TestStructuredHandlerDurationAndDefaults(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	slog.New(handler).LogAttrs(Background(), slog.LevelInfo, "",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("submit_duration", 2*time.Second),
		slog.String("outcome", "bogus"),
		slog.String("payload", ""),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{"component=app", "event=unknown", "duration_ms=2", "submit_duration_ms=2000"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	for _, unwanted := range []string{"outcome=", "payload="} {
		if strings.Contains(line, unwanted) {
			t.Fatalf("did not expect %s in %s", unwanted, line)
		}
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	LogEvent(Background(), slog.New(handler), slog.LevelDebug, "hidden")
	closeWriter(t, aw)
	if buf.Len() != 0 {
		t.Fatalf("debug line should be filtered, got %q", buf.String())
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, s.Allow())
	}
	want := []bool{true, false, false, true, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("allow #%d = %v, want %v", i, got[i], want[i])
		}
	}

	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler should allow every event")
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/10": {1, 10},
		"20":   {1, 20},
		"0":    {0, 0},
		"x/y":  {0, 0},
		"":     {0, 0},
	}
	for spec, want := range cases {
		num, den := parseRatioSpec(spec)
		if num != want[0] || den != want[1] {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", spec, num, den, want[0], want[1])
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\nd", 10); got != "abc\nd" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("unexpected rune truncation %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("unexpected compact rid %q", got)
	}
}

func TestHelpersTolerateUninitializedLogger(t *testing.T) {
	prev := L
	L = nil
	defer func() { L = prev }()
	Info(Background(), "flow", "noop", slog.String("k", "v"))
}
