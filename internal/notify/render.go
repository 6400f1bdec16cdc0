package notify

import (
	"fmt"
	"strings"
)

// statisticsPreview bounds how many threshold clients the statistics
// screen lists by name.
const statisticsPreview = 5

func bulletList(b *strings.Builder, names []string) {
	for _, name := range names {
		b.WriteString("• ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
}

func thresholdHeading(threshold int) string {
	return fmt.Sprintf("КЛИЕНТЫ С %d %s", threshold, strings.ToUpper(SessionsInstrumental(threshold)))
}

// RenderReminder renders the daily reminder for the threshold clients in
// names. It returns "" when there is nobody to remind about.
func RenderReminder(names []string, threshold int) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("🔔 " + thresholdHeading(threshold) + ":\n\n")
	bulletList(&b, names)
	fmt.Fprintf(&b, "\nВсего клиентов с %d %s: %d", threshold, SessionsInstrumental(threshold), len(names))
	return b.String()
}

// RenderMonthlyReport renders the monthly report. Empty sections are
// omitted; the header is always present.
func RenderMonthlyReport(s Summary) string {
	var b strings.Builder
	b.WriteString("📊 ЕЖЕМЕСЯЧНЫЙ ОТЧЕТ\n\n")
	fmt.Fprintf(&b, "👥 Всего клиентов: %d\n", s.TotalClients)
	fmt.Fprintf(&b, "🎫 Всего занятий в абонементах: %d\n", s.TotalSessions)
	fmt.Fprintf(&b, "🆕 Новых клиентов за месяц: %d\n\n", len(s.NewClients))

	if len(s.ThresholdClients) > 0 {
		b.WriteString("🔔 " + thresholdHeading(s.Threshold) + ":\n")
		bulletList(&b, s.ThresholdClients)
		b.WriteByte('\n')
	}
	if len(s.ZeroClients) > 0 {
		b.WriteString("❌ КЛИЕНТЫ С 0 ЗАНЯТИЙ:\n")
		bulletList(&b, s.ZeroClients)
		b.WriteByte('\n')
	}
	if len(s.NewClients) > 0 {
		lines := make([]string, len(s.NewClients))
		for i, name := range s.NewClients {
			lines[i] = "• " + name
		}
		b.WriteString("🆕 НОВЫЕ КЛИЕНТЫ:\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

// RenderStatistics renders the on-demand statistics screen.
func RenderStatistics(s Summary) string {
	var b strings.Builder
	b.WriteString("📊 Статистика:\n\n")
	fmt.Fprintf(&b, "Всего клиентов: %d\n", s.TotalClients)
	fmt.Fprintf(&b, "Всего занятий в абонементах: %d\n", s.TotalSessions)

	if n := len(s.ThresholdClients); n > 0 {
		fmt.Fprintf(&b, "\n🔔 Клиентов с %d %s: %d\n", s.Threshold, SessionsInstrumental(s.Threshold), n)
		bulletList(&b, s.ThresholdClients[:min(n, statisticsPreview)])
		if n > statisticsPreview {
			fmt.Fprintf(&b, "... и еще %d\n", n-statisticsPreview)
		}
	}
	return b.String()
}
