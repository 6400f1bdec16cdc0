package bot

import (
	"errors"
	"strconv"
	"strings"

	tghelpers "github.com/m3rciful/studiobot/core/telegram/helpers"
	"github.com/m3rciful/studiobot/core/telegram/state"
	"github.com/m3rciful/studiobot/internal/ledger"

	tele "gopkg.in/telebot.v4"
)

// Dialog steps. Every step except awaiting a new client name is bound to
// the client carried as session data.
const (
	stepClientName   state.Step = "awaiting_client_name"
	stepSessionCount state.Step = "awaiting_session_count"
	stepPhone        state.Step = "awaiting_phone"
	stepNotes        state.Step = "awaiting_notes"
)

// Dialogs tracks the dialog step of each user; the data is the client the
// step refers to.
type Dialogs = state.Manager[string]

func (b *Bot) dialogClient(c tele.Context) string {
	return b.dialogs.Get(tghelpers.SenderID(c)).Data
}

func (b *Bot) onClientName(c tele.Context) error {
	name := strings.TrimSpace(c.Text())
	switch {
	case name == "":
		return tghelpers.SendText(c, textEmptyName)
	case len(name) > maxNameBytes:
		return tghelpers.SendText(c, textNameTooLong(maxNameBytes))
	}
	b.resetDialog(c)
	if _, err := b.ledger.AddSessions(tghelpers.BuildContext(c), name, 0, ledger.Contact{}); err != nil {
		return b.storageFailed(c, "client.add", err)
	}
	return tghelpers.SendText(c, textClientAdded(name), clientActionsKeyboard(name))
}

func (b *Bot) onSessionCount(c tele.Context) error {
	name := b.dialogClient(c)
	count, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	switch {
	case err != nil:
		return tghelpers.SendText(c, textNotANumber)
	case count <= 0:
		return tghelpers.SendText(c, textPositiveNumber)
	}
	rec, err := b.ledger.AddSessions(tghelpers.BuildContext(c), name, count, ledger.Contact{})
	if errors.Is(err, ledger.ErrInvalidCount) {
		return tghelpers.SendText(c, textPositiveNumber)
	}
	b.resetDialog(c)
	if err != nil {
		return b.storageFailed(c, "client.add_sessions", err)
	}
	return tghelpers.SendText(c, textSessionsAdded(name, count, rec.Sessions), clientActionsKeyboard(name))
}

func (b *Bot) onPhone(c tele.Context) error {
	name := b.dialogClient(c)
	phone := contactValue(c.Text())
	return b.saveContact(c, name, ledger.ContactUpdate{Phone: &phone}, textPhoneSaved(name))
}

func (b *Bot) onNotes(c tele.Context) error {
	name := b.dialogClient(c)
	notes := contactValue(c.Text())
	return b.saveContact(c, name, ledger.ContactUpdate{Notes: &notes}, textNotesSaved(name))
}

func (b *Bot) saveContact(c tele.Context, name string, upd ledger.ContactUpdate, done string) error {
	b.resetDialog(c)
	_, err := b.ledger.SetContact(tghelpers.BuildContext(c), name, upd)
	switch {
	case errors.Is(err, ledger.ErrClientNotFound):
		return tghelpers.SendText(c, textNotFound(name), backToListKeyboard())
	case err != nil:
		return b.storageFailed(c, "client.contact", err)
	}
	return tghelpers.SendText(c, done, clientActionsKeyboard(name))
}

// contactValue trims input; the clear marker stores an empty value.
func contactValue(text string) string {
	v := strings.TrimSpace(text)
	if v == clearMarker {
		return ""
	}
	return v
}
