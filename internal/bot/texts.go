package bot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/studiobot/internal/ledger"
	"github.com/m3rciful/studiobot/internal/notify"
)

const dateLayout = "02.01.2006"

const (
	textChooseAction   = "Выберите действие:"
	textListEmpty      = "📝 Список клиентов пуст."
	textChooseClient   = "👥 Выберите клиента:"
	textAddClient      = "👤 Добавление нового клиента\n\nВведите имя нового клиента:"
	textEmptyName      = "❌ Имя клиента не может быть пустым"
	textPositiveNumber = "❌ Введите положительное число"
	textNotANumber     = "❌ Пожалуйста, введите число"
	textUseButtons     = "Используйте кнопки для работы с ботом"
	textCancelled      = "Действие отменено"
	textRejected       = "⛔ Этот бот доступен только администратору студии"
	textRateLimited    = "⏳ Слишком много запросов, попробуйте чуть позже"
	textNoRecipient    = "⚠️ Не задан чат администратора (ADMIN_CHAT_ID), сообщение не отправлено"
	textSendFailed     = "❌ Не удалось отправить сообщение администратору"
	textReportSent     = "✅ Ежемесячный отчет отправлен"
	textStorageFailed  = "❌ Не удалось прочитать или сохранить данные клиентов"
	clearMarker        = "-"
)

func textMainMenu(title string) string {
	return title + "\n\n" + textChooseAction
}

func textNameTooLong(limit int) string {
	return fmt.Sprintf("❌ Имя клиента слишком длинное (не больше %d байт)", limit)
}

func textNotFound(name string) string {
	return fmt.Sprintf("❌ Клиент %s не найден", name)
}

func textClient(name string, remaining int) string {
	return fmt.Sprintf("👤 Клиент: %s\n📊 Осталось занятий: %d\n\n%s", name, remaining, textChooseAction)
}

func clientButton(name string, sessions int) string {
	return fmt.Sprintf("%s (%s)", name, notify.Sessions(sessions))
}

func thresholdWarning(remaining, threshold int) string {
	if remaining != threshold {
		return ""
	}
	return "\n\n🔔 Внимание! Осталось " + notify.Sessions(remaining)
}

func textInfo(name string, rec ledger.Record) string {
	var b strings.Builder
	b.WriteString("👤 Информация о клиенте:\n\n")
	fmt.Fprintf(&b, "Имя: %s\n", name)
	fmt.Fprintf(&b, "Занятий: %d\n", rec.Sessions)
	if !rec.LastPaymentDate.IsZero() {
		fmt.Fprintf(&b, "Последняя оплата: %s\n", rec.LastPaymentDate.Format(dateLayout))
	}
	if rec.LastAttendance != nil && !rec.LastAttendance.IsZero() {
		fmt.Fprintf(&b, "Последнее посещение: %s\n", rec.LastAttendance.Format(dateLayout))
	}
	if rec.Phone != "" {
		fmt.Fprintf(&b, "Телефон: %s\n", rec.Phone)
	}
	if rec.Notes != "" {
		fmt.Fprintf(&b, "Заметки: %s\n", rec.Notes)
	}
	return b.String()
}

func textAttended(name string, remaining, threshold int) string {
	return fmt.Sprintf("✅ Посещение отмечено для %s\n📊 Осталось занятий: %d", name, remaining) +
		thresholdWarning(remaining, threshold)
}

func textAttendanceRefused(name string) string {
	return fmt.Sprintf("❌ Не удалось отметить посещение для %s\nВозможно, абонемент закончился или клиент не найден", name)
}

func textBalance(name string, remaining, threshold int) string {
	return fmt.Sprintf("👤 Клиент: %s\n📊 Осталось занятий: %d", name, remaining) +
		thresholdWarning(remaining, threshold)
}

func textAskCount(name string) string {
	return fmt.Sprintf("➕ Добавление занятий для %s\n\nВведите количество занятий для добавления:", name)
}

func textSessionsAdded(name string, added, total int) string {
	return fmt.Sprintf("✅ Добавлено %s для %s\n📊 Теперь занятий: %d", notify.Sessions(added), name, total)
}

func textClientAdded(name string) string {
	return fmt.Sprintf("✅ Клиент '%s' успешно добавлен!\nТеперь вы можете добавить занятия для него.", name)
}

func textAskDelete(name string) string {
	return fmt.Sprintf("🗑️ Вы действительно хотите удалить клиента %s?\n\n⚠️ Это действие нельзя отменить!", name)
}

func textDeleted(name string) string {
	return fmt.Sprintf("✅ Клиент %s успешно удален!", name)
}

func textDeleteFailed(name string) string {
	return fmt.Sprintf("❌ Ошибка при удалении клиента %s", name)
}

func textAskPhone(name string) string {
	return fmt.Sprintf("📞 Введите телефон клиента %s\n\nОтправьте «%s», чтобы очистить.", name, clearMarker)
}

func textAskNotes(name string) string {
	return fmt.Sprintf("📝 Введите заметки о клиенте %s\n\nОтправьте «%s», чтобы очистить.", name, clearMarker)
}

func textPhoneSaved(name string) string {
	return fmt.Sprintf("✅ Телефон клиента %s обновлен", name)
}

func textNotesSaved(name string) string {
	return fmt.Sprintf("✅ Заметки о клиенте %s обновлены", name)
}

func textRemindersSent(count int) string {
	return fmt.Sprintf("✅ Тестовые напоминания отправлены для %d клиентов", count)
}

func textNoReminders(threshold int) string {
	return fmt.Sprintf("✅ Нет клиентов с %d %s для напоминаний", threshold, notify.SessionsInstrumental(threshold))
}
