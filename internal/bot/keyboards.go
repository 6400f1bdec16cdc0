package bot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/studiobot/core/logger"
	"github.com/m3rciful/studiobot/core/telegram/callbacks"
	"github.com/m3rciful/studiobot/core/telegram/keyboard"
	"github.com/m3rciful/studiobot/internal/ledger"

	tele "gopkg.in/telebot.v4"
)

// Callback keys. Client-scoped keys carry the client name as payload.
const (
	cbMainMenu      = "main_menu"
	cbListClients   = "list_clients"
	cbAddClient     = "add_client"
	cbStatistics    = "statistics"
	cbTestReminders = "test_reminders"

	cbClient        = "client"
	cbInfo          = "info"
	cbAttend        = "attend"
	cbCheck         = "check"
	cbAddSessions   = "add_sessions"
	cbDeleteAsk     = "delete_ask"
	cbDeleteConfirm = "delete_confirm"
	cbEditPhone     = "edit_phone"
	cbEditNotes     = "edit_notes"
)

// maxNameBytes keeps every client-scoped button within Telegram's
// callback_data limit.
const maxNameBytes = callbacks.MaxDataBytes - len("\f"+cbDeleteConfirm+"|")

func mainMenuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "📋 Список клиентов", Unique: cbListClients},
		{Text: "➕ Добавить клиента", Unique: cbAddClient},
		{Text: "📊 Статистика", Unique: cbStatistics},
		{Text: "🔔 Тест напоминаний", Unique: cbTestReminders},
	})
}

func backToMainMenuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🔙 Главное меню", Unique: cbMainMenu},
	})
}

func backToListKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🔙 К списку клиентов", Unique: cbListClients},
	})
}

// clientsKeyboard lists clients in collation order. Names too long for a
// button payload are left out and logged.
func clientsKeyboard(ctx context.Context, led ledger.Ledger) *tele.ReplyMarkup {
	names := led.Names()
	buttons := make([]keyboard.InlineBtn, 0, len(names)+1)
	for _, name := range names {
		if !callbacks.Fits(cbDeleteConfirm, name) {
			logger.Warn(ctx, component, "keyboard.skip",
				slog.String("client", logger.SanitizeLimit(name, 64)),
				slog.String("reason", "name_too_long"),
			)
			continue
		}
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   clientButton(name, led[name].Sessions),
			Unique: cbClient,
			Data:   name,
		})
	}
	buttons = append(buttons, keyboard.InlineBtn{Text: "🔙 Назад", Unique: cbMainMenu})
	return keyboard.InlineButtons(buttons)
}

func clientActionsKeyboard(name string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "✅ Отметить посещение", Unique: cbAttend, Data: name}},
		[]keyboard.InlineBtn{{Text: "➕ Добавить занятия", Unique: cbAddSessions, Data: name}},
		[]keyboard.InlineBtn{
			{Text: "📋 Информация", Unique: cbInfo, Data: name},
			{Text: "📊 Проверить остаток", Unique: cbCheck, Data: name},
		},
		[]keyboard.InlineBtn{
			{Text: "📞 Телефон", Unique: cbEditPhone, Data: name},
			{Text: "📝 Заметки", Unique: cbEditNotes, Data: name},
		},
		[]keyboard.InlineBtn{{Text: "🗑️ Удалить клиента", Unique: cbDeleteAsk, Data: name}},
		[]keyboard.InlineBtn{{Text: "🔙 К списку клиентов", Unique: cbListClients}},
	)
}

func deleteConfirmationKeyboard(name string) *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "❌ Да, удалить", Unique: cbDeleteConfirm, Data: name},
		{Text: "✅ Нет, оставить", Unique: cbClient, Data: name},
	})
}

func backToClientKeyboard(name string) *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🔙 Назад", Unique: cbClient, Data: name},
	})
}
