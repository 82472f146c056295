package progress

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sopti/sopti/internal/model"
)

func apply(t *testing.T, m batchModel, msg tea.Msg) batchModel {
	t.Helper()
	updated, _ := m.Update(msg)
	next, ok := updated.(batchModel)
	if !ok {
		t.Fatalf("Update returned %T, want batchModel", updated)
	}
	return next
}

func TestModelTracksCounts(t *testing.T) {
	m := newBatchModel()
	m = apply(t, m, beginMsg{total: 3})
	m = apply(t, m, advanceMsg{title: "Song A", ok: true})
	m = apply(t, m, advanceMsg{title: "Song B", ok: false})

	if m.total != 3 || m.done != 2 || m.failed != 1 {
		t.Errorf("counts = %d/%d failed %d, want 2/3 failed 1", m.done, m.total, m.failed)
	}
	if m.lastTitle != "Song B" {
		t.Errorf("lastTitle = %q, want Song B", m.lastTitle)
	}
}

func TestModelBeginResetsState(t *testing.T) {
	m := newBatchModel()
	m = apply(t, m, beginMsg{total: 2})
	m = apply(t, m, advanceMsg{title: "x", ok: false})
	m = apply(t, m, endMsg{})
	m = apply(t, m, beginMsg{total: 5})

	if m.done != 0 || m.failed != 0 || m.lastTitle != "" {
		t.Errorf("state not reset: done=%d failed=%d title=%q", m.done, m.failed, m.lastTitle)
	}
	if m.total != 5 {
		t.Errorf("total = %d, want 5", m.total)
	}
	if !m.active {
		t.Error("model not active after begin")
	}
}

func TestModelViewShowsProgress(t *testing.T) {
	m := newBatchModel()
	m = apply(t, m, beginMsg{total: 4})
	m = apply(t, m, advanceMsg{title: "Some Song", ok: true})

	view := m.View()
	if !strings.Contains(view, "1/4") {
		t.Errorf("view missing counts: %q", view)
	}
	if !strings.Contains(view, "Some Song") {
		t.Errorf("view missing track title: %q", view)
	}
}

func TestModelViewEmptyWhenIdle(t *testing.T) {
	m := newBatchModel()
	if view := m.View(); view != "" {
		t.Errorf("idle view = %q, want empty", view)
	}

	m = apply(t, m, beginMsg{total: 2})
	m = apply(t, m, endMsg{})
	if view := m.View(); view != "" {
		t.Errorf("ended view = %q, want empty", view)
	}
}

func TestModelStopQuits(t *testing.T) {
	m := newBatchModel()
	updated, cmd := m.Update(stopMsg{})
	next := updated.(batchModel)
	if !next.quitting {
		t.Error("model not quitting after stop")
	}
	if cmd == nil {
		t.Fatal("stop did not produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("stop command is not Quit")
	}
}

func TestNilManagerIsSafe(t *testing.T) {
	var m *Manager
	m.Begin(3)
	m.Advance(model.Track{Title: "x"}, true)
	m.End()
	m.Stop()
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a very long title indeed", 10, "a very ..."},
		{"tiny", 3, "tiny"},
	}
	for _, tt := range tests {
		if got := truncate(tt.s, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
		}
	}
}
