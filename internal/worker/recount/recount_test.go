package recount

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type mockRecounter struct {
	calls     int
	updated   int64
	err       error
	recountFn func(ctx context.Context) (int64, error)
}

func (m *mockRecounter) RecountAll(ctx context.Context) (int64, error) {
	m.calls++
	if m.recountFn != nil {
		return m.recountFn(ctx)
	}
	return m.updated, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// findLogEntry はJSONログからkeyを持つ最初のエントリを返す。
func findLogEntry(t *testing.T, buf *bytes.Buffer, key string) map[string]any {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if _, ok := entry[key]; ok {
			return entry
		}
	}
	return nil
}

func TestJob_Run_ReturnsUpdatedCount(t *testing.T) {
	var buf bytes.Buffer
	rc := &mockRecounter{updated: 7}
	job := NewJob(rc, newTestLogger(&buf))

	updated, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}
	if updated != 7 {
		t.Errorf("updated = %d, want 7", updated)
	}
	if rc.calls != 1 {
		t.Errorf("RecountAll calls = %d, want 1", rc.calls)
	}

	entry := findLogEntry(t, &buf, "updated_count")
	if entry == nil {
		t.Fatalf("ログに updated_count が記録されていない: %s", buf.String())
	}
	if entry["updated_count"] != float64(7) {
		t.Errorf("updated_count = %v, want 7", entry["updated_count"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("ログに duration_ms が記録されていない")
	}
}

func TestJob_Run_ZeroUpdatesIsNotError(t *testing.T) {
	var buf bytes.Buffer
	job := NewJob(&mockRecounter{}, newTestLogger(&buf))

	updated, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0", updated)
	}
}

func TestJob_Run_WrapsError(t *testing.T) {
	var buf bytes.Buffer
	dbErr := errors.New("connection refused")
	job := NewJob(&mockRecounter{err: dbErr}, newTestLogger(&buf))

	_, err := job.Run(context.Background())
	if !errors.Is(err, dbErr) {
		t.Fatalf("err = %v, want wrapped %v", err, dbErr)
	}

	entry := findLogEntry(t, &buf, "error")
	if entry == nil || entry["level"] != "ERROR" {
		t.Errorf("エラーログが記録されていない: %s", buf.String())
	}
}
