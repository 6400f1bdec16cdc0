package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	user   *tele.User
	store  map[string]any
	sent   []any
}

func newFakeContext(userID int64, upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, user: &tele.User{ID: userID}, store: map[string]any{}}
}

func (c *fakeContext) Update() tele.Update   { return c.update }
func (c *fakeContext) Sender() *tele.User    { return c.user }
func (c *fakeContext) Chat() *tele.Chat      { return &tele.Chat{ID: c.user.ID} }
func (c *fakeContext) Text() string          { return "" }
func (c *fakeContext) Get(key string) any    { return c.store[key] }
func (c *fakeContext) Set(key string, v any) { c.store[key] = v }
func (c *fakeContext) Send(what any, _ ...any) error {
	c.sent = append(c.sent, what)
	return nil
}
func (c *fakeContext) Edit(what any, _ ...any) error {
	c.sent = append(c.sent, what)
	return nil
}

func ok(tele.Context) error { return nil }

func TestAdminOnlyMiddleware(t *testing.T) {
	rejected := 0
	reject := func(tele.Context) error { rejected++; return nil }
	calls := 0
	next := func(tele.Context) error { calls++; return nil }

	open := AdminOnlyMiddleware(AdminOptions{OnReject: reject})(next)
	require.NoError(t, open(newFakeContext(1, tele.Update{})))

	guarded := AdminOnlyMiddleware(AdminOptions{AdminID: 42, OnReject: reject})(next)
	require.NoError(t, guarded(newFakeContext(1, tele.Update{})))
	require.NoError(t, guarded(newFakeContext(42, tele.Update{})))

	require.Equal(t, 2, calls)
	require.Equal(t, 1, rejected)
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	limited := 0
	calls := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})
	h := mw(func(tele.Context) error { calls++; return nil })

	msg := tele.Update{Message: &tele.Message{}}
	require.NoError(t, h(newFakeContext(1, msg)))
	require.NoError(t, h(newFakeContext(1, msg)))
	require.NoError(t, h(newFakeContext(2, msg)))
	require.NoError(t, h(newFakeContext(1, tele.Update{Callback: &tele.Callback{}})))

	now = now.Add(2 * time.Second)
	require.NoError(t, h(newFakeContext(1, msg)))

	require.Equal(t, 4, calls)
	require.Equal(t, 1, limited)
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFakeContext(1, tele.Update{}))
	require.ErrorContains(t, err, "panic: boom")

	plain := errors.New("plain")
	require.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return plain })(newFakeContext(1, tele.Update{})), plain)
	require.NoError(t, RecoverMiddleware(ok)(newFakeContext(1, tele.Update{})))
}

func TestMessageMetricsMiddlewareCounts(t *testing.T) {
	c := newFakeContext(1, tele.Update{})
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("plain")
		return c.Edit("menu", &tele.ReplyMarkup{})
	})
	require.NoError(t, h(c))

	msgs, kb := GetCounters(c)
	require.Equal(t, 2, msgs)
	require.True(t, kb)
}

func TestLoggerMiddlewareStoresRID(t *testing.T) {
	c := newFakeContext(5, tele.Update{ID: 77, Callback: &tele.Callback{Data: "\fclient|Bob"}})
	require.NoError(t, LoggerMiddleware(ok)(c))
	require.NotEmpty(t, c.Get("rid"))
}
