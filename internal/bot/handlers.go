package bot

import (
	"errors"
	"log/slog"

	"github.com/m3rciful/studiobot/core/logger"
	"github.com/m3rciful/studiobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/studiobot/core/telegram/helpers"
	"github.com/m3rciful/studiobot/internal/ledger"
	"github.com/m3rciful/studiobot/internal/notify"

	tele "gopkg.in/telebot.v4"
)

type clientHandler func(c tele.Context, name string) error

// withClient resolves the client named in the button payload. Every button
// press ends an unfinished dialog.
func (b *Bot) withClient(h clientHandler) tele.HandlerFunc {
	return func(c tele.Context) error {
		b.resetDialog(c)
		name, err := callbacks.PayloadName(c)
		if err != nil {
			logger.Warn(tghelpers.BuildContext(c), component, "callback.payload",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return b.showMainMenu(c)
		}
		return h(c, name)
	}
}

func (b *Bot) onStart(c tele.Context) error {
	b.resetDialog(c)
	return tghelpers.SendText(c, textMainMenu(b.opts.Title), mainMenuKeyboard())
}

func (b *Bot) onCancel(c tele.Context) error {
	b.resetDialog(c)
	return tghelpers.SendText(c, textCancelled+"\n\n"+textMainMenu(b.opts.Title), mainMenuKeyboard())
}

func (b *Bot) onUnknownText(c tele.Context) error {
	return tghelpers.SendText(c, textUseButtons, mainMenuKeyboard())
}

func (b *Bot) onMainMenu(c tele.Context) error {
	b.resetDialog(c)
	return b.showMainMenu(c)
}

func (b *Bot) onListClients(c tele.Context) error {
	b.resetDialog(c)
	ctx := tghelpers.BuildContext(c)
	snap, err := b.ledger.Snapshot(ctx)
	if err != nil {
		return b.storageFailed(c, "clients.list", err)
	}
	if len(snap) == 0 {
		return tghelpers.Show(c, textListEmpty, backToMainMenuKeyboard())
	}
	return tghelpers.Show(c, textChooseClient, clientsKeyboard(ctx, snap))
}

func (b *Bot) onAddClient(c tele.Context) error {
	b.enter(c, stepClientName, "")
	return tghelpers.Show(c, textAddClient, backToMainMenuKeyboard())
}

func (b *Bot) onStatistics(c tele.Context) error {
	b.resetDialog(c)
	snap, err := b.ledger.Snapshot(tghelpers.BuildContext(c))
	if err != nil {
		return b.storageFailed(c, "statistics", err)
	}
	summary := notify.Summarize(snap, b.opts.Threshold, b.opts.Clock.Now())
	return tghelpers.Show(c, notify.RenderStatistics(summary), backToMainMenuKeyboard())
}

func (b *Bot) onTestReminders(c tele.Context) error {
	b.resetDialog(c)
	if b.reports == nil {
		return tghelpers.Show(c, textSendFailed, backToMainMenuKeyboard())
	}
	count, err := b.reports.SendReminders(tghelpers.BuildContext(c))
	switch {
	case isNoRecipient(err):
		return tghelpers.Show(c, textNoRecipient, backToMainMenuKeyboard())
	case err != nil:
		_ = tghelpers.Show(c, textSendFailed, backToMainMenuKeyboard())
		return err
	case count == 0:
		return tghelpers.Show(c, textNoReminders(b.opts.Threshold), backToMainMenuKeyboard())
	}
	return tghelpers.Show(c, textRemindersSent(count), backToMainMenuKeyboard())
}

func (b *Bot) onReport(c tele.Context) error {
	b.resetDialog(c)
	if b.reports == nil {
		return tghelpers.SendText(c, textSendFailed)
	}
	err := b.reports.SendMonthlyReport(tghelpers.BuildContext(c))
	switch {
	case isNoRecipient(err):
		return tghelpers.SendText(c, textNoRecipient)
	case err != nil:
		_ = tghelpers.SendText(c, textSendFailed)
		return err
	}
	return tghelpers.SendText(c, textReportSent)
}

func (b *Bot) onClient(c tele.Context, name string) error {
	remaining, err := b.ledger.Remaining(tghelpers.BuildContext(c), name)
	switch {
	case errors.Is(err, ledger.ErrClientNotFound):
		return tghelpers.Show(c, textNotFound(name), backToListKeyboard())
	case err != nil:
		return b.storageFailed(c, "client.open", err)
	}
	return tghelpers.Show(c, textClient(name, remaining), clientActionsKeyboard(name))
}

func (b *Bot) onInfo(c tele.Context, name string) error {
	rec, err := b.ledger.Get(tghelpers.BuildContext(c), name)
	switch {
	case errors.Is(err, ledger.ErrClientNotFound):
		return tghelpers.Show(c, textNotFound(name), backToListKeyboard())
	case err != nil:
		return b.storageFailed(c, "client.info", err)
	}
	return tghelpers.Show(c, textInfo(name, rec), backToClientKeyboard(name))
}

func (b *Bot) onAttend(c tele.Context, name string) error {
	remaining, err := b.ledger.MarkAttendance(tghelpers.BuildContext(c), name)
	switch {
	case ledger.IsAttendanceRefused(err):
		return tghelpers.Show(c, textAttendanceRefused(name), backToClientKeyboard(name))
	case err != nil:
		return b.storageFailed(c, "client.attend", err)
	}
	return tghelpers.Show(c, textAttended(name, remaining, b.opts.Threshold), clientActionsKeyboard(name))
}

func (b *Bot) onCheck(c tele.Context, name string) error {
	remaining, err := b.ledger.Remaining(tghelpers.BuildContext(c), name)
	switch {
	case errors.Is(err, ledger.ErrClientNotFound):
		return tghelpers.Show(c, textNotFound(name), backToListKeyboard())
	case err != nil:
		return b.storageFailed(c, "client.check", err)
	}
	return tghelpers.Show(c, textBalance(name, remaining, b.opts.Threshold), backToClientKeyboard(name))
}

func (b *Bot) onAddSessions(c tele.Context, name string) error {
	b.enter(c, stepSessionCount, name)
	return tghelpers.Show(c, textAskCount(name), backToClientKeyboard(name))
}

func (b *Bot) onDeleteAsk(c tele.Context, name string) error {
	return tghelpers.Show(c, textAskDelete(name), deleteConfirmationKeyboard(name))
}

func (b *Bot) onDeleteConfirm(c tele.Context, name string) error {
	deleted, err := b.ledger.Delete(tghelpers.BuildContext(c), name)
	if err != nil {
		_ = tghelpers.Show(c, textDeleteFailed(name), backToListKeyboard())
		return err
	}
	if !deleted {
		return tghelpers.Show(c, textDeleteFailed(name), backToListKeyboard())
	}
	return tghelpers.Show(c, textDeleted(name), backToListKeyboard())
}

func (b *Bot) onEditPhone(c tele.Context, name string) error {
	b.enter(c, stepPhone, name)
	return tghelpers.Show(c, textAskPhone(name), backToClientKeyboard(name))
}

func (b *Bot) onEditNotes(c tele.Context, name string) error {
	b.enter(c, stepNotes, name)
	return tghelpers.Show(c, textAskNotes(name), backToClientKeyboard(name))
}
