package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/m3rciful/studiobot/core/telegram/sender"
	"github.com/m3rciful/studiobot/internal/notify"

	tele "gopkg.in/telebot.v4"
)

// Sender is the part of *tele.Bot used to reach the administrator chat.
type Sender interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

var errNotAttached = errors.New("bot: notifier is not attached to a running bot")

// AdminNotifier delivers scheduler texts to the administrator chat. It is
// created before the bot starts and attached once the API client exists.
type AdminNotifier struct {
	chatID int64

	mu   sync.RWMutex
	api  Sender
	disp *sender.Dispatcher
}

// NewAdminNotifier targets chatID; 0 means no recipient is configured.
func NewAdminNotifier(chatID int64) *AdminNotifier {
	return &AdminNotifier{chatID: chatID}
}

// Attach sets the API client and the optional retrying dispatcher.
func (n *AdminNotifier) Attach(api Sender, disp *sender.Dispatcher) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.api = api
	n.disp = disp
}

// Notify sends text to the administrator chat and waits for the result.
func (n *AdminNotifier) Notify(ctx context.Context, text string) error {
	if n.chatID == 0 {
		return notify.ErrNoRecipient
	}
	n.mu.RLock()
	api, disp := n.api, n.disp
	n.mu.RUnlock()
	if api == nil {
		return errNotAttached
	}

	run := func() error {
		_, err := api.Send(tele.ChatID(n.chatID), text)
		return err
	}
	if disp == nil {
		return run()
	}
	return disp.Do(ctx, "notify.admin", "sendMessage", run)
}
