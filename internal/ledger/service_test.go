package ledger

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 4, 1, 12, 0, 0, 0, time.Local))
	store := newTestStore(t, clock)
	return NewService(store, WithClock(clock)), store, clock
}

func TestServicePackLifecycle(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	rec, err := svc.AddSessions(ctx, "Bob", 3, Contact{})
	require.NoError(t, err)
	require.Equal(t, 3, rec.Sessions)

	for want := 2; want >= 0; want-- {
		clock.Advance(time.Hour)
		left, err := svc.MarkAttendance(ctx, "Bob")
		require.NoError(t, err)
		require.Equal(t, want, left)
	}

	_, err = svc.MarkAttendance(ctx, "Bob")
	require.ErrorIs(t, err, ErrPackExhausted)
	require.True(t, IsAttendanceRefused(err))

	left, err := svc.Remaining(ctx, "Bob")
	require.NoError(t, err)
	require.Equal(t, 0, left)

	got, err := svc.Get(ctx, "Bob")
	require.NoError(t, err)
	require.NotNil(t, got.LastAttendance)
	require.True(t, got.LastAttendance.Equal(clock.Now()))
}

func TestServiceAddSessionsZeroRegistersClient(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	rec, err := svc.AddSessions(ctx, "Eve", 0, Contact{Phone: "+7 911"})
	require.NoError(t, err)
	require.Equal(t, 0, rec.Sessions)
	require.Equal(t, "+7 911", rec.Phone)
	require.True(t, rec.LastPaymentDate.Equal(clock.Now()))

	_, err = svc.MarkAttendance(ctx, "Eve")
	require.ErrorIs(t, err, ErrPackExhausted)
}

func TestServiceAddSessionsTopsUpExistingClient(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddSessions(ctx, "Анна", 4, Contact{Phone: "1", Notes: "старшая группа"})
	require.NoError(t, err)

	clock.Advance(72 * time.Hour)
	rec, err := svc.AddSessions(ctx, "Анна", 8, Contact{Phone: "2"})
	require.NoError(t, err)
	require.Equal(t, 12, rec.Sessions)
	require.Equal(t, "2", rec.Phone)
	require.Equal(t, "старшая группа", rec.Notes)
	require.True(t, rec.LastPaymentDate.Equal(clock.Now()))
}

func TestServiceAddSessionsRejectsInput(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddSessions(ctx, "   ", 1, Contact{})
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.AddSessions(ctx, "Bob", -1, Contact{})
	require.ErrorIs(t, err, ErrInvalidCount)

	led, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, led)
}

func TestServiceAddSessionsRejectsOverflow(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddSessions(ctx, "Bob", 1, Contact{})
	require.NoError(t, err)

	_, err = svc.AddSessions(ctx, "Bob", math.MaxInt, Contact{})
	require.ErrorIs(t, err, ErrInvalidCount)

	left, err := svc.Remaining(ctx, "Bob")
	require.NoError(t, err)
	require.Equal(t, 1, left)

	rec, err := svc.AddSessions(ctx, "Bob", math.MaxInt-1, Contact{})
	require.NoError(t, err)
	require.Equal(t, math.MaxInt, rec.Sessions)
}

func TestServiceMarkAttendanceUnknownClient(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddSessions(ctx, "Bob", 1, Contact{})
	require.NoError(t, err)
	before, err := store.Load(ctx)
	require.NoError(t, err)

	_, err = svc.MarkAttendance(ctx, "Alice")
	require.ErrorIs(t, err, ErrClientNotFound)
	require.True(t, IsAttendanceRefused(err))

	after, err := store.Load(ctx)
	require.NoError(t, err)
	requireSameLedger(t, before, after)
}

func TestServiceExhaustedLeavesRecordUntouched(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddSessions(ctx, "Bob", 0, Contact{Notes: "x"})
	require.NoError(t, err)
	before, err := store.Load(ctx)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = svc.MarkAttendance(ctx, "Bob")
	require.ErrorIs(t, err, ErrPackExhausted)

	after, err := store.Load(ctx)
	require.NoError(t, err)
	requireSameLedger(t, before, after)
	require.Nil(t, after["Bob"].LastAttendance)
}

func TestServiceSetContact(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddSessions(ctx, "Bob", 2, Contact{Phone: "1", Notes: "n"})
	require.NoError(t, err)

	phone := "  +7 999 000  "
	rec, err := svc.SetContact(ctx, "Bob", ContactUpdate{Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "+7 999 000", rec.Phone)
	require.Equal(t, "n", rec.Notes)

	empty := ""
	rec, err = svc.SetContact(ctx, "Bob", ContactUpdate{Notes: &empty})
	require.NoError(t, err)
	require.Equal(t, "", rec.Notes)
	require.Equal(t, 2, rec.Sessions)

	_, err = svc.SetContact(ctx, "Nobody", ContactUpdate{Phone: &phone})
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestServiceDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddSessions(ctx, "Bob", 2, Contact{})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, "Bob")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = svc.Delete(ctx, "Bob")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = svc.Get(ctx, "Bob")
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestServiceBalanceNeverNegative(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	names := []string{"a", "b", "c"}
	expected := map[string]int{}

	for i := 0; i < 200; i++ {
		name := names[rng.Intn(len(names))]
		clock.Advance(time.Minute)
		if rng.Intn(3) == 0 {
			n := rng.Intn(4)
			_, err := svc.AddSessions(ctx, name, n, Contact{})
			require.NoError(t, err)
			expected[name] += n
			continue
		}
		left, err := svc.MarkAttendance(ctx, name)
		if _, known := expected[name]; !known {
			require.ErrorIs(t, err, ErrClientNotFound)
			continue
		}
		if expected[name] == 0 {
			require.ErrorIs(t, err, ErrPackExhausted)
			continue
		}
		require.NoError(t, err)
		expected[name]--
		require.Equal(t, expected[name], left)
	}

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	for name, want := range expected {
		require.GreaterOrEqual(t, snap[name].Sessions, 0)
		require.Equal(t, want, snap[name].Sessions, name)
	}
}

type countingRecorder struct {
	loads map[string]int
	ops   map[string]int
	saves int
}

func (r *countingRecorder) ObserveLoad(outcome string, _ time.Duration) { r.loads[outcome]++ }
func (r *countingRecorder) ObserveSave(error, time.Duration)            { r.saves++ }
func (r *countingRecorder) IncOperation(op string, err error) {
	key := op + ":ok"
	if err != nil {
		key = op + ":error"
	}
	r.ops[key]++
}

func TestServiceReportsToRecorder(t *testing.T) {
	rec := &countingRecorder{loads: map[string]int{}, ops: map[string]int{}}
	clock := clockwork.NewFakeClock()
	store := newTestStore(t, clock)
	store.opts.recorder = rec
	svc := NewService(store, WithClock(clock), WithRecorder(rec))
	ctx := context.Background()

	_, err := svc.AddSessions(ctx, "Bob", 1, Contact{})
	require.NoError(t, err)
	_, err = svc.MarkAttendance(ctx, "Bob")
	require.NoError(t, err)
	_, err = svc.MarkAttendance(ctx, "Bob")
	require.Error(t, err)

	require.Equal(t, 1, rec.loads[LoadMissing])
	require.Equal(t, 2, rec.loads[LoadOK])
	require.Equal(t, 2, rec.saves)
	require.Equal(t, 1, rec.ops["add_sessions:ok"])
	require.Equal(t, 1, rec.ops["mark_attendance:ok"])
	require.Equal(t, 1, rec.ops["mark_attendance:error"])
}

func TestErrorCodes(t *testing.T) {
	for err, want := range map[*Error]string{
		ErrClientNotFound: "CLIENT_NOT_FOUND",
		ErrPackExhausted:  "PACK_EXHAUSTED",
		ErrEmptyName:      "EMPTY_NAME",
		ErrInvalidCount:   "INVALID_COUNT",
	} {
		require.Equal(t, want, err.Code(), err.Error())
	}
}
