// Package bot implements the chat interface of the studio bot: the menu,
// the client screens and the text dialogs that collect names, counts and
// contact details.
package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/m3rciful/studiobot/core/logger"
	tg "github.com/m3rciful/studiobot/core/telegram"
	"github.com/m3rciful/studiobot/core/telegram/commands"
	tghelpers "github.com/m3rciful/studiobot/core/telegram/helpers"
	"github.com/m3rciful/studiobot/core/telegram/state"
	"github.com/m3rciful/studiobot/internal/ledger"
	"github.com/m3rciful/studiobot/internal/notify"

	tele "gopkg.in/telebot.v4"
)

const component = "bot"

// Ledger is the set of pack operations the chat interface drives.
type Ledger interface {
	AddSessions(ctx context.Context, name string, count int, contact ledger.Contact) (ledger.Record, error)
	MarkAttendance(ctx context.Context, name string) (int, error)
	Remaining(ctx context.Context, name string) (int, error)
	Get(ctx context.Context, name string) (ledger.Record, error)
	SetContact(ctx context.Context, name string, upd ledger.ContactUpdate) (ledger.Record, error)
	Delete(ctx context.Context, name string) (bool, error)
	Snapshot(ctx context.Context) (ledger.Ledger, error)
}

// Reports sends administrator notifications on demand.
type Reports interface {
	SendReminders(ctx context.Context) (int, error)
	SendMonthlyReport(ctx context.Context) error
}

// Options configures presentation and the reminder rule shown in chat.
type Options struct {
	Title     string
	Threshold int
	Clock     clockwork.Clock
}

// Bot holds the handlers of the chat interface.
type Bot struct {
	ledger  Ledger
	reports Reports
	dialogs *Dialogs
	opts    Options
}

// New wires the chat interface. A nil reports disables the reminder test
// button and the report command replies with a failure.
func New(led Ledger, reports Reports, opts Options) *Bot {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	b := &Bot{
		ledger:  led,
		reports: reports,
		dialogs: state.NewManager[string](),
		opts:    opts,
	}
	b.dialogs.Handle(stepClientName, b.onClientName)
	b.dialogs.Handle(stepSessionCount, b.onSessionCount)
	b.dialogs.Handle(stepPhone, b.onPhone)
	b.dialogs.Handle(stepNotes, b.onNotes)
	return b
}

// Dialogs exposes the dialog state for the text router.
func (b *Bot) Dialogs() *Dialogs { return b.dialogs }

// Register adds every command and callback of the bot to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := map[string]commands.Command{
		"/start": {
			Handler:     b.onStart,
			Description: "Главное меню",
			Aliases:     []string{"menu"},
		},
		"/cancel": {
			Handler:     b.onCancel,
			Description: "Отменить текущее действие",
		},
		"/report": {
			Handler:     b.onReport,
			Description: "Отправить ежемесячный отчет",
			AdminOnly:   true,
		},
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}

	callbacks := map[string]tele.HandlerFunc{
		cbMainMenu:      b.onMainMenu,
		cbListClients:   b.onListClients,
		cbAddClient:     b.onAddClient,
		cbStatistics:    b.onStatistics,
		cbTestReminders: b.onTestReminders,
		cbClient:        b.withClient(b.onClient),
		cbInfo:          b.withClient(b.onInfo),
		cbAttend:        b.withClient(b.onAttend),
		cbCheck:         b.withClient(b.onCheck),
		cbAddSessions:   b.withClient(b.onAddSessions),
		cbDeleteAsk:     b.withClient(b.onDeleteAsk),
		cbDeleteConfirm: b.withClient(b.onDeleteConfirm),
		cbEditPhone:     b.withClient(b.onEditPhone),
		cbEditNotes:     b.withClient(b.onEditNotes),
	}
	for key, h := range callbacks {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}
	reg.SetTextFallback(b.onUnknownText)
	return nil
}

// Rejected answers someone other than the operator.
func (b *Bot) Rejected(c tele.Context) error {
	logger.Warn(tghelpers.BuildContext(c), component, "access.reject",
		slog.String("status", "rejected"),
	)
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: textRejected, ShowAlert: true})
	}
	return tghelpers.SendText(c, textRejected)
}

// Limited answers an update dropped by the rate limiter.
func (b *Bot) Limited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: textRateLimited})
	}
	return nil
}

// storageFailed shows a generic failure and hands err back to the router so
// it lands in the handler summary.
func (b *Bot) storageFailed(c tele.Context, op string, err error) error {
	logger.Error(tghelpers.BuildContext(c), component, op,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
	_ = tghelpers.Show(c, textStorageFailed, backToMainMenuKeyboard())
	return err
}

func (b *Bot) resetDialog(c tele.Context) {
	if id := tghelpers.SenderID(c); id != 0 {
		b.dialogs.Reset(id)
	}
}

func (b *Bot) enter(c tele.Context, step state.Step, client string) {
	if id := tghelpers.SenderID(c); id != 0 {
		b.dialogs.Enter(id, step, client)
	}
}

func (b *Bot) showMainMenu(c tele.Context) error {
	return tghelpers.Show(c, textMainMenu(b.opts.Title), mainMenuKeyboard())
}

func isNoRecipient(err error) bool {
	return errors.Is(err, notify.ErrNoRecipient)
}
