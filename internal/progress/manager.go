package progress

import (
	"context"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sopti/sopti/internal/model"
)

// Manager renders batch download progress with Bubble Tea. It is
// display-only: dropping every event changes nothing about the run. The
// zero-value methods are safe on a nil manager, which is how quiet mode
// disables rendering.
type Manager struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	program *tea.Program
	started bool
	done    chan struct{}
}

// NewManager creates an idle manager; call Start before reporting.
func NewManager() *Manager {
	return &Manager{}
}

// Start begins rendering in a background goroutine.
func (m *Manager) Start(ctx context.Context) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}

	program := tea.NewProgram(newBatchModel(),
		tea.WithOutput(os.Stderr),
		tea.WithoutSignalHandler(),
	)

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.program = program
	m.started = true
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		_, _ = program.Run()
		if m.cancel != nil {
			m.cancel()
		}
	}()

	go func() {
		<-m.ctx.Done()
		m.send(stopMsg{})
	}()
}

// Stop shuts the renderer down and waits briefly for the terminal to be
// restored.
func (m *Manager) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	program := m.program
	done := m.done
	m.mu.Unlock()

	if program != nil {
		program.Send(stopMsg{})
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
	if m.cancel != nil {
		m.cancel()
	}
}

// Begin resets the display for a pass over total pending tracks.
func (m *Manager) Begin(total int) {
	m.send(beginMsg{total: total})
}

// Advance reports one completed track.
func (m *Manager) Advance(track model.Track, ok bool) {
	title := track.Title
	if title == "" {
		title = track.URL
	}
	m.send(advanceMsg{title: title, ok: ok})
}

// End marks the current pass finished; the program keeps running so the next
// pass can reuse it.
func (m *Manager) End() {
	m.send(endMsg{})
}

func (m *Manager) send(msg tea.Msg) {
	if m == nil {
		return
	}
	m.mu.Lock()
	program := m.program
	started := m.started
	m.mu.Unlock()
	if started && program != nil {
		program.Send(msg)
	}
}
