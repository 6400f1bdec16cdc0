package bot

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/studiobot/core/telegram"
	"github.com/m3rciful/studiobot/internal/ledger"
	"github.com/m3rciful/studiobot/internal/notify"
)

const operatorID = 7

type reply struct {
	text   string
	markup *tele.ReplyMarkup
	edit   bool
}

type fakeContext struct {
	tele.Context
	cb        *tele.Callback
	text      string
	store     map[string]any
	replies   []reply
	responses []*tele.CallbackResponse
}

func (c *fakeContext) Callback() *tele.Callback { return c.cb }
func (c *fakeContext) Text() string             { return c.text }
func (c *fakeContext) Update() tele.Update      { return tele.Update{ID: 1, Callback: c.cb} }
func (c *fakeContext) Sender() *tele.User       { return &tele.User{ID: operatorID} }
func (c *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: operatorID} }
func (c *fakeContext) Get(key string) any       { return c.store[key] }
func (c *fakeContext) Set(key string, v any)    { c.store[key] = v }

func (c *fakeContext) Send(what any, opts ...any) error {
	c.replies = append(c.replies, reply{text: what.(string), markup: markupOf(opts)})
	return nil
}

func (c *fakeContext) EditOrSend(what any, opts ...any) error {
	c.replies = append(c.replies, reply{text: what.(string), markup: markupOf(opts), edit: true})
	return nil
}

func (c *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	c.responses = append(c.responses, resp...)
	return nil
}

func (c *fakeContext) last(t *testing.T) reply {
	t.Helper()
	require.NotEmpty(t, c.replies)
	return c.replies[len(c.replies)-1]
}

func markupOf(opts []any) *tele.ReplyMarkup {
	for _, o := range opts {
		if m, ok := o.(*tele.ReplyMarkup); ok {
			return m
		}
	}
	return nil
}

func press(unique, payload string) *fakeContext {
	data := "\f" + unique
	if payload != "" {
		data += "|" + payload
	}
	return &fakeContext{cb: &tele.Callback{Data: data}, store: map[string]any{}}
}

func typed(text string) *fakeContext {
	return &fakeContext{text: text, store: map[string]any{}}
}

func buttonData(m *tele.ReplyMarkup) []string {
	var out []string
	if m == nil {
		return out
	}
	for _, row := range m.InlineKeyboard {
		for _, btn := range row {
			out = append(out, btn.Unique+"|"+btn.Data)
		}
	}
	return out
}

type fakeReports struct {
	count     int
	err       error
	reminders int
	reports   int
}

func (r *fakeReports) SendReminders(context.Context) (int, error) {
	r.reminders++
	return r.count, r.err
}

func (r *fakeReports) SendMonthlyReport(context.Context) error {
	r.reports++
	return r.err
}

type harness struct {
	bot     *Bot
	reg     *tg.Registry
	svc     *ledger.Service
	reports *fakeReports
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 10, 12, 0, 0, 0, time.Local))
	store := ledger.NewStore(filepath.Join(t.TempDir(), "clients.json"), ledger.WithClock(clock))
	svc := ledger.NewService(store, ledger.WithClock(clock))
	reports := &fakeReports{}
	b := New(svc, reports, Options{Title: "Studio", Threshold: 1, Clock: clock})
	reg := tg.NewRegistry()
	require.NoError(t, b.Register(reg))
	return &harness{bot: b, reg: reg, svc: svc, reports: reports}
}

func (h *harness) callback(t *testing.T, c *fakeContext) error {
	t.Helper()
	key, _ := strings.CutPrefix(c.cb.Data, "\f")
	key, _, _ = strings.Cut(key, "|")
	handler, ok := h.reg.GetCallback(key)
	require.Truef(t, ok, "callback %q not registered", key)
	return handler(c)
}

func (h *harness) text(t *testing.T, c *fakeContext) error {
	t.Helper()
	require.True(t, h.bot.Dialogs().InProgress(operatorID), "no dialog in progress")
	return h.bot.Dialogs().ManagerHandler(c)
}

func TestRegisterWiresCommandsAndCallbacks(t *testing.T) {
	h := newHarness(t)
	require.Len(t, h.reg.ListCallbacks(), 14)
	_, cmd, ok := h.reg.LookupCommand("menu")
	require.True(t, ok)
	require.NotNil(t, cmd.Handler)
	_, report, ok := h.reg.LookupCommand("/report")
	require.True(t, ok)
	require.True(t, report.AdminOnly)
	require.NotNil(t, h.reg.TextFallback())
}

func TestStartShowsMainMenu(t *testing.T) {
	h := newHarness(t)
	_, start, _ := h.reg.LookupCommand("/start")
	c := typed("/start")
	require.NoError(t, start.Handler(c))

	r := c.last(t)
	require.Equal(t, "Studio\n\nВыберите действие:", r.text)
	require.Equal(t, []string{"list_clients|", "add_client|", "statistics|", "test_reminders|"}, buttonData(r.markup))
}

func TestAddClientDialog(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.callback(t, press(cbAddClient, "")))

	empty := typed("   ")
	require.NoError(t, h.text(t, empty))
	require.Equal(t, textEmptyName, empty.last(t).text)

	long := typed(strings.Repeat("я", maxNameBytes))
	require.NoError(t, h.text(t, long))
	require.Contains(t, long.last(t).text, "слишком длинное")

	c := typed("  Анна ")
	require.NoError(t, h.text(t, c))
	require.Contains(t, c.last(t).text, "Клиент 'Анна' успешно добавлен")
	require.False(t, h.bot.Dialogs().InProgress(operatorID))

	rec, err := h.svc.Get(context.Background(), "Анна")
	require.NoError(t, err)
	require.Zero(t, rec.Sessions)
}

func TestAddSessionsDialogValidatesCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.AddSessions(ctx, "Bob", 2, ledger.Contact{})
	require.NoError(t, err)

	require.NoError(t, h.callback(t, press(cbAddSessions, "Bob")))

	for input, want := range map[string]string{"abc": textNotANumber, "0": textPositiveNumber, "-3": textPositiveNumber} {
		c := typed(input)
		require.NoError(t, h.text(t, c))
		require.Equal(t, want, c.last(t).text, input)
	}

	c := typed("8")
	require.NoError(t, h.text(t, c))
	require.Equal(t, "✅ Добавлено 8 занятий для Bob\n📊 Теперь занятий: 10", c.last(t).text)

	left, err := h.svc.Remaining(ctx, "Bob")
	require.NoError(t, err)
	require.Equal(t, 10, left)
}

func TestAddSessionsDialogRejectsOverflowingCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.AddSessions(ctx, "Bob", 1, ledger.Contact{})
	require.NoError(t, err)

	require.NoError(t, h.callback(t, press(cbAddSessions, "Bob")))

	c := typed(strconv.Itoa(math.MaxInt))
	require.NoError(t, h.text(t, c))
	require.Equal(t, textPositiveNumber, c.last(t).text)
	require.True(t, h.bot.Dialogs().InProgress(operatorID), "dialog stays open for another try")

	left, err := h.svc.Remaining(ctx, "Bob")
	require.NoError(t, err)
	require.Equal(t, 1, left)
}

func TestAttendWarnsAtThreshold(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSessions(context.Background(), "Bob", 2, ledger.Contact{})
	require.NoError(t, err)

	c := press(cbAttend, "Bob")
	require.NoError(t, h.callback(t, c))
	r := c.last(t)
	require.True(t, r.edit)
	require.Contains(t, r.text, "Осталось занятий: 1")
	require.Contains(t, r.text, "🔔 Внимание! Осталось 1 занятие")

	c = press(cbAttend, "Bob")
	require.NoError(t, h.callback(t, c))
	require.NotContains(t, c.last(t).text, "Внимание")

	c = press(cbAttend, "Bob")
	require.NoError(t, h.callback(t, c))
	require.Equal(t, textAttendanceRefused("Bob"), c.last(t).text)

	c = press(cbAttend, "Nobody")
	require.NoError(t, h.callback(t, c))
	require.Equal(t, textAttendanceRefused("Nobody"), c.last(t).text)
}

func TestListClientsSortedWithBalances(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := press(cbListClients, "")
	require.NoError(t, h.callback(t, c))
	require.Equal(t, textListEmpty, c.last(t).text)

	for name, n := range map[string]int{"Яна": 1, "Борис": 5, "Алла": 0} {
		_, err := h.svc.AddSessions(ctx, name, n, ledger.Contact{})
		require.NoError(t, err)
	}

	c = press(cbListClients, "")
	require.NoError(t, h.callback(t, c))
	r := c.last(t)
	require.Equal(t, textChooseClient, r.text)
	require.Equal(t, []string{"client|Алла", "client|Борис", "client|Яна", "main_menu|"}, buttonData(r.markup))
	require.Equal(t, "Борис (5 занятий)", r.markup.InlineKeyboard[1][0].Text)
}

func TestDeleteFlow(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSessions(context.Background(), "Bob", 1, ledger.Contact{})
	require.NoError(t, err)

	c := press(cbDeleteAsk, "Bob")
	require.NoError(t, h.callback(t, c))
	require.Equal(t, []string{"delete_confirm|Bob", "client|Bob"}, buttonData(c.last(t).markup))

	c = press(cbDeleteConfirm, "Bob")
	require.NoError(t, h.callback(t, c))
	require.Equal(t, textDeleted("Bob"), c.last(t).text)

	c = press(cbDeleteConfirm, "Bob")
	require.NoError(t, h.callback(t, c))
	require.Equal(t, textDeleteFailed("Bob"), c.last(t).text)
}

func TestContactDialogsSetAndClear(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.AddSessions(ctx, "Bob", 1, ledger.Contact{})
	require.NoError(t, err)

	require.NoError(t, h.callback(t, press(cbEditPhone, "Bob")))
	require.NoError(t, h.text(t, typed(" +7 900 ")))
	require.NoError(t, h.callback(t, press(cbEditNotes, "Bob")))
	require.NoError(t, h.text(t, typed("прыжки")))

	rec, err := h.svc.Get(ctx, "Bob")
	require.NoError(t, err)
	require.Equal(t, "+7 900", rec.Phone)
	require.Equal(t, "прыжки", rec.Notes)

	info := press(cbInfo, "Bob")
	require.NoError(t, h.callback(t, info))
	require.Contains(t, info.last(t).text, "Телефон: +7 900")
	require.Contains(t, info.last(t).text, "Последняя оплата: 10.05.2025")

	require.NoError(t, h.callback(t, press(cbEditPhone, "Bob")))
	require.NoError(t, h.text(t, typed("-")))
	rec, err = h.svc.Get(ctx, "Bob")
	require.NoError(t, err)
	require.Empty(t, rec.Phone)
	require.Equal(t, "прыжки", rec.Notes)
}

func TestNavigationEndsDialog(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.callback(t, press(cbAddClient, "")))
	require.True(t, h.bot.Dialogs().InProgress(operatorID))

	require.NoError(t, h.callback(t, press(cbMainMenu, "")))
	require.False(t, h.bot.Dialogs().InProgress(operatorID))
}

func TestTestRemindersOutcomes(t *testing.T) {
	h := newHarness(t)

	c := press(cbTestReminders, "")
	require.NoError(t, h.callback(t, c))
	require.Equal(t, "✅ Нет клиентов с 1 занятием для напоминаний", c.last(t).text)

	h.reports.count = 3
	c = press(cbTestReminders, "")
	require.NoError(t, h.callback(t, c))
	require.Equal(t, textRemindersSent(3), c.last(t).text)

	h.reports.err = notify.ErrNoRecipient
	c = press(cbTestReminders, "")
	require.NoError(t, h.callback(t, c))
	require.Equal(t, textNoRecipient, c.last(t).text)

	h.reports.err = errors.New("boom")
	c = press(cbTestReminders, "")
	require.Error(t, h.callback(t, c))
	require.Equal(t, textSendFailed, c.last(t).text)
	require.Equal(t, 4, h.reports.reminders)
}

func TestReportCommand(t *testing.T) {
	h := newHarness(t)
	_, report, _ := h.reg.LookupCommand("/report")

	c := typed("/report")
	require.NoError(t, report.Handler(c))
	require.Equal(t, textReportSent, c.last(t).text)
	require.Equal(t, 1, h.reports.reports)
}

func TestStatisticsRendersSummary(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AddSessions(context.Background(), "Bob", 4, ledger.Contact{})
	require.NoError(t, err)

	c := press(cbStatistics, "")
	require.NoError(t, h.callback(t, c))
	require.Contains(t, c.last(t).text, "4")
	require.Equal(t, []string{"main_menu|"}, buttonData(c.last(t).markup))
}

func TestRejectedAlertsOnCallback(t *testing.T) {
	h := newHarness(t)
	c := press(cbMainMenu, "")
	require.NoError(t, h.bot.Rejected(c))
	require.Len(t, c.responses, 1)
	require.True(t, c.responses[0].ShowAlert)

	m := typed("hi")
	require.NoError(t, h.bot.Rejected(m))
	require.Equal(t, textRejected, m.last(t).text)
}

type fakeAPI struct {
	to   []tele.Recipient
	text []string
	err  error
}

func (a *fakeAPI) Send(to tele.Recipient, what any, _ ...any) (*tele.Message, error) {
	a.to = append(a.to, to)
	a.text = append(a.text, what.(string))
	return &tele.Message{}, a.err
}

func TestAdminNotifier(t *testing.T) {
	ctx := context.Background()

	require.ErrorIs(t, NewAdminNotifier(0).Notify(ctx, "x"), notify.ErrNoRecipient)

	n := NewAdminNotifier(99)
	require.ErrorIs(t, n.Notify(ctx, "x"), errNotAttached)

	api := &fakeAPI{}
	n.Attach(api, nil)
	require.NoError(t, n.Notify(ctx, "hello"))
	require.Equal(t, []string{"hello"}, api.text)
	require.Equal(t, "99", api.to[0].Recipient())

	api.err = errors.New("forbidden")
	require.Error(t, n.Notify(ctx, "again"))
}
