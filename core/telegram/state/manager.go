package state

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/studiobot/core/logger"
	tghelpers "github.com/m3rciful/studiobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Step identifies a dialog step.
type Step string

// StepIdle means there is no active dialog with the user.
const StepIdle Step = "idle"

// Session is the dialog position of one user.
type Session[D any] struct {
	Step Step
	Data D
}

// Idle reports whether the session carries no active dialog.
func (s Session[D]) Idle() bool { return s.Step == "" || s.Step == StepIdle }

// Manager stores sessions in memory and dispatches text input to the handler
// registered for the user's current step.
type Manager[D any] struct {
	mu       sync.RWMutex
	sessions map[int64]Session[D]
	handlers map[Step]tele.HandlerFunc
}

// NewManager constructs an empty in-memory Manager.
func NewManager[D any]() *Manager[D] {
	return &Manager[D]{
		sessions: make(map[int64]Session[D]),
		handlers: make(map[Step]tele.HandlerFunc),
	}
}

// Handle registers the handler for a step. Registering idle is ignored.
func (m *Manager[D]) Handle(step Step, h tele.HandlerFunc) {
	if h == nil || step == StepIdle || step == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[step] = h
}

// Get returns the user's session, idle when none exists.
func (m *Manager[D]) Get(userID int64) Session[D] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	return Session[D]{Step: StepIdle}
}

// Enter moves the user to step with the given data.
func (m *Manager[D]) Enter(userID int64, step Step, data D) {
	if step == StepIdle || step == "" {
		m.Reset(userID)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = Session[D]{Step: step, Data: data}
}

// Reset returns the user to idle.
func (m *Manager[D]) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// InProgress reports whether the user is inside a dialog.
func (m *Manager[D]) InProgress(userID int64) bool {
	return !m.Get(userID).Idle()
}

// ManagerHandler runs the handler registered for the sender's current step.
// Users at a step without a handler are reset to idle.
func (m *Manager[D]) ManagerHandler(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	current := m.Get(sender.ID)

	m.mu.RLock()
	handler, ok := m.handlers[current.Step]
	m.mu.RUnlock()

	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.dispatch",
		slog.String("status", logger.Status(nil)),
		slog.String("step", string(current.Step)),
		slog.Bool("handled", ok),
	)
	if !ok {
		m.Reset(sender.ID)
		return nil
	}
	return handler(c)
}
