package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/studiobot/internal/ledger"
)

func paidAt(sessions int, t time.Time) ledger.Record {
	return ledger.Record{Sessions: sessions, LastPaymentDate: ledger.NewTimestamp(t)}
}

func TestThresholdClients(t *testing.T) {
	now := time.Date(2025, 5, 10, 10, 0, 0, 0, time.UTC)
	l := ledger.Ledger{"B": paidAt(1, now), "A": paidAt(1, now), "C": paidAt(2, now)}

	require.Equal(t, []string{"A", "B"}, ThresholdClients(l, DefaultThreshold))
	require.Equal(t, []string{"C"}, ThresholdClients(l, 2))
	require.Empty(t, ThresholdClients(l, 3))
	require.Empty(t, ZeroClients(l))
}

func TestNewClientsWindow(t *testing.T) {
	now := time.Date(2025, 5, 31, 10, 0, 0, 0, time.UTC)
	l := ledger.Ledger{
		"edge":   paidAt(4, now.Add(-NewClientWindow)),
		"old":    paidAt(4, now.Add(-NewClientWindow-time.Second)),
		"recent": paidAt(0, now.Add(-time.Hour)),
		"nodate": {Sessions: 2},
	}
	require.Equal(t, []string{"edge", "recent"}, NewClients(l, now))
	require.Equal(t, []string{"recent"}, ZeroClients(l))
}

func TestIsMonthlyReportDay(t *testing.T) {
	cases := []struct {
		month time.Month
		day   int
		want  bool
	}{
		{time.April, 30, true},
		{time.April, 29, false},
		{time.May, 1, false},
		{time.May, 31, false},
		{time.February, 28, true},
		{time.February, 27, false},
		{time.January, 30, true},
	}
	for _, tc := range cases {
		now := time.Date(2025, tc.month, tc.day, 10, 0, 0, 0, time.UTC)
		require.Equal(t, tc.want, IsMonthlyReportDay(now), "%s %d", tc.month, tc.day)
	}
	require.True(t, IsMonthlyReportDay(time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC)))
	require.False(t, IsMonthlyReportDay(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)))
}

func TestRenderReminder(t *testing.T) {
	require.Equal(t, "", RenderReminder(nil, DefaultThreshold))

	got := RenderReminder([]string{"Анна", "Bob"}, DefaultThreshold)
	want := "🔔 КЛИЕНТЫ С 1 ЗАНЯТИЕМ:\n\n• Анна\n• Bob\n\nВсего клиентов с 1 занятием: 2"
	require.Equal(t, want, got)

	require.Contains(t, RenderReminder([]string{"x"}, 2), "КЛИЕНТЫ С 2 ЗАНЯТИЯМИ")
}

func TestRenderMonthlyReport(t *testing.T) {
	now := time.Date(2025, 4, 30, 10, 0, 0, 0, time.UTC)
	l := ledger.Ledger{
		"Анна":  paidAt(1, now.Add(-48*time.Hour)),
		"Борис": paidAt(0, now.AddDate(0, -3, 0)),
		"Вера":  paidAt(7, now.AddDate(0, -2, 0)),
	}
	got := RenderMonthlyReport(Summarize(l, DefaultThreshold, now))
	want := "📊 ЕЖЕМЕСЯЧНЫЙ ОТЧЕТ\n\n" +
		"👥 Всего клиентов: 3\n" +
		"🎫 Всего занятий в абонементах: 8\n" +
		"🆕 Новых клиентов за месяц: 1\n\n" +
		"🔔 КЛИЕНТЫ С 1 ЗАНЯТИЕМ:\n• Анна\n\n" +
		"❌ КЛИЕНТЫ С 0 ЗАНЯТИЙ:\n• Борис\n\n" +
		"🆕 НОВЫЕ КЛИЕНТЫ:\n• Анна"
	require.Equal(t, want, got)
}

func TestRenderMonthlyReportEmptyLedger(t *testing.T) {
	got := RenderMonthlyReport(Summarize(ledger.Ledger{}, DefaultThreshold, time.Now()))
	require.Equal(t, "📊 ЕЖЕМЕСЯЧНЫЙ ОТЧЕТ\n\n👥 Всего клиентов: 0\n🎫 Всего занятий в абонементах: 0\n🆕 Новых клиентов за месяц: 0\n\n", got)
}

func TestRenderStatisticsTruncates(t *testing.T) {
	s := Summary{
		TotalClients:     7,
		TotalSessions:    7,
		Threshold:        1,
		ThresholdClients: []string{"a", "b", "c", "d", "e", "f", "g"},
	}
	got := RenderStatistics(s)
	want := "📊 Статистика:\n\nВсего клиентов: 7\nВсего занятий в абонементах: 7\n" +
		"\n🔔 Клиентов с 1 занятием: 7\n• a\n• b\n• c\n• d\n• e\n... и еще 2\n"
	require.Equal(t, want, got)

	s.ThresholdClients = nil
	require.Equal(t, "📊 Статистика:\n\nВсего клиентов: 7\nВсего занятий в абонементах: 7\n", RenderStatistics(s))
}

func TestSessionsWord(t *testing.T) {
	cases := map[int]string{
		0:   "0 занятий",
		1:   "1 занятие",
		2:   "2 занятия",
		4:   "4 занятия",
		5:   "5 занятий",
		11:  "11 занятий",
		21:  "21 занятие",
		22:  "22 занятия",
		112: "112 занятий",
	}
	for n, want := range cases {
		require.Equal(t, want, Sessions(n))
	}
}
