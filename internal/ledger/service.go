package ledger

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/m3rciful/studiobot/core/logger"
)

// Storage loads and saves the whole ledger.
type Storage interface {
	Load(ctx context.Context) (Ledger, error)
	Save(ctx context.Context, l Ledger) error
}

// Contact carries optional contact metadata supplied with a payment.
// Empty fields leave the stored values untouched.
type Contact struct {
	Phone string
	Notes string
}

// ContactUpdate overwrites the non-nil fields, including with empty strings.
type ContactUpdate struct {
	Phone *string
	Notes *string
}

// Service implements the pack operations. Each call is an independent
// load-mutate-save cycle; calls are not composed transactionally.
type Service struct {
	store Storage
	opts  options
}

// NewService wires pack operations on top of store.
func NewService(store Storage, opts ...Option) *Service {
	return &Service{store: store, opts: buildOptions(opts)}
}

// AddSessions credits count sessions to name and refreshes the payment date,
// creating the client when absent. A zero count registers a client with no
// pack yet. A count that would overflow the balance fails with
// ErrInvalidCount.
func (s *Service) AddSessions(ctx context.Context, name string, count int, contact Contact) (rec Record, err error) {
	defer func() { s.record(ctx, "add_sessions", name, err) }()

	if strings.TrimSpace(name) == "" {
		return Record{}, ErrEmptyName
	}
	if count < 0 {
		return Record{}, ErrInvalidCount
	}

	led, err := s.store.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	now := NewTimestamp(s.opts.clock.Now())
	rec, exists := led[name]
	if exists {
		if count > math.MaxInt-rec.Sessions {
			return Record{}, ErrInvalidCount
		}
		rec.Sessions += count
		rec.LastPaymentDate = now
		if contact.Phone != "" {
			rec.Phone = contact.Phone
		}
		if contact.Notes != "" {
			rec.Notes = contact.Notes
		}
	} else {
		rec = Record{
			Sessions:        count,
			LastPaymentDate: now,
			Phone:           contact.Phone,
			Notes:           contact.Notes,
		}
	}
	led[name] = rec
	if err := s.store.Save(ctx, led); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// MarkAttendance spends one session and returns the new balance.
// It fails with ErrClientNotFound or ErrPackExhausted without mutating the
// ledger.
func (s *Service) MarkAttendance(ctx context.Context, name string) (remaining int, err error) {
	defer func() { s.record(ctx, "mark_attendance", name, err) }()

	led, err := s.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	rec, ok := led[name]
	if !ok {
		return 0, ErrClientNotFound
	}
	if rec.Sessions <= 0 {
		return 0, ErrPackExhausted
	}
	rec.Sessions--
	attended := NewTimestamp(s.opts.clock.Now())
	rec.LastAttendance = &attended
	led[name] = rec
	if err := s.store.Save(ctx, led); err != nil {
		return 0, err
	}
	return rec.Sessions, nil
}

// Remaining returns the current balance of name.
func (s *Service) Remaining(ctx context.Context, name string) (int, error) {
	rec, err := s.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	return rec.Sessions, nil
}

// Get returns the full record of name.
func (s *Service) Get(ctx context.Context, name string) (Record, error) {
	led, err := s.store.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := led[name]
	if !ok {
		return Record{}, ErrClientNotFound
	}
	return rec, nil
}

// SetContact overwrites contact metadata of an existing client.
func (s *Service) SetContact(ctx context.Context, name string, upd ContactUpdate) (rec Record, err error) {
	defer func() { s.record(ctx, "set_contact", name, err) }()

	led, err := s.store.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := led[name]
	if !ok {
		return Record{}, ErrClientNotFound
	}
	if upd.Phone != nil {
		rec.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Notes != nil {
		rec.Notes = strings.TrimSpace(*upd.Notes)
	}
	led[name] = rec
	if err := s.store.Save(ctx, led); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete removes name and reports whether it existed.
func (s *Service) Delete(ctx context.Context, name string) (deleted bool, err error) {
	defer func() { s.record(ctx, "delete", name, err) }()

	led, err := s.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := led[name]; !ok {
		return false, nil
	}
	delete(led, name)
	if err := s.store.Save(ctx, led); err != nil {
		return false, err
	}
	return true, nil
}

// Snapshot returns a freshly loaded copy of the whole ledger.
func (s *Service) Snapshot(ctx context.Context) (Ledger, error) {
	return s.store.Load(ctx)
}

func (s *Service) record(ctx context.Context, op, name string, err error) {
	s.opts.recorder.IncOperation(op, err)
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("client", logger.SanitizeLimit(name, 64)),
		slog.String("status", logger.Status(err)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.Debug(ctx, component, "ledger.op", attrs...)
}
