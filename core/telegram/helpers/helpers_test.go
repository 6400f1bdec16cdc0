package helpers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studiobot/core/logger"
)

type fakeContext struct {
	tele.Context
	cb      *tele.Callback
	store   map[string]any
	sent    []string
	edited  []string
	editErr error
}

func newFakeContext(cb *tele.Callback) *fakeContext {
	return &fakeContext{cb: cb, store: map[string]any{}}
}

func (c *fakeContext) Callback() *tele.Callback { return c.cb }
func (c *fakeContext) Update() tele.Update      { return tele.Update{ID: 3, Callback: c.cb} }
func (c *fakeContext) Sender() *tele.User       { return &tele.User{ID: 11} }
func (c *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: 22} }
func (c *fakeContext) Get(key string) any       { return c.store[key] }
func (c *fakeContext) Set(key string, v any)    { c.store[key] = v }
func (c *fakeContext) Send(what any, _ ...any) error {
	c.sent = append(c.sent, what.(string))
	return nil
}
func (c *fakeContext) EditOrSend(what any, _ ...any) error {
	if c.editErr != nil {
		return c.editErr
	}
	c.edited = append(c.edited, what.(string))
	return nil
}

func TestShowEditsOnCallbackAndSendsOtherwise(t *testing.T) {
	cb := newFakeContext(&tele.Callback{Data: "\fmain_menu"})
	require.NoError(t, Show(cb, "menu"))
	require.Equal(t, []string{"menu"}, cb.edited)
	require.Empty(t, cb.sent)

	msg := newFakeContext(nil)
	require.NoError(t, Show(msg, "menu", nil))
	require.Equal(t, []string{"menu"}, msg.sent)
}

func TestShowIgnoresUnchangedMessage(t *testing.T) {
	c := newFakeContext(&tele.Callback{})
	c.editErr = errors.New("telegram: Bad Request: message is not modified (400)")
	require.NoError(t, Show(c, "same"))

	c.editErr = errors.New("telegram: Forbidden (403)")
	require.Error(t, Show(c, "other"))
}

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	c := newFakeContext(nil)
	ctx := BuildContext(c)
	require.Equal(t, "3:22:11", logger.RIDFrom(ctx))
	require.Equal(t, int64(22), logger.ChatIDFrom(ctx))

	again, ok := ContextFrom(c)
	require.True(t, ok)
	require.Equal(t, ctx, again)

	ctx = WithHandler(c, "callback.attend")
	require.Equal(t, "callback.attend", logger.HandlerFrom(ctx))
}

func TestSenderAndChatIDs(t *testing.T) {
	c := newFakeContext(nil)
	require.Equal(t, int64(11), SenderID(c))
	require.Equal(t, int64(22), ChatID(c))
	require.Zero(t, SenderID(nil))
}
