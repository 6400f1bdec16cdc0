// Package notify decides which clients the administrator hears about and
// renders the reminder and report texts. Everything here is a pure function
// of a ledger snapshot and the current time.
package notify

import (
	"errors"
	"time"

	"github.com/m3rciful/studiobot/internal/ledger"
)

// DefaultThreshold is the balance at which a client is due a reminder.
const DefaultThreshold = 1

// NewClientWindow is how far back a payment makes a client "new".
const NewClientWindow = 30 * 24 * time.Hour

// ErrNoRecipient is returned by notifiers that have no administrator chat
// configured.
var ErrNoRecipient = errors.New("notify: no recipient configured")

// ThresholdClients lists clients whose balance equals threshold, sorted.
func ThresholdClients(l ledger.Ledger, threshold int) []string {
	return filter(l, func(r ledger.Record) bool { return r.Sessions == threshold })
}

// ZeroClients lists clients with no sessions left, sorted.
func ZeroClients(l ledger.Ledger) []string {
	return filter(l, func(r ledger.Record) bool { return r.Sessions == 0 })
}

// NewClients lists clients whose last payment is no older than
// NewClientWindow, sorted.
func NewClients(l ledger.Ledger, now time.Time) []string {
	since := now.Add(-NewClientWindow)
	return filter(l, func(r ledger.Record) bool {
		return !r.LastPaymentDate.IsZero() && !r.LastPaymentDate.Before(since)
	})
}

func filter(l ledger.Ledger, keep func(ledger.Record) bool) []string {
	names := []string{}
	for name, rec := range l {
		if keep(rec) {
			names = append(names, name)
		}
	}
	ledger.SortNames(names)
	return names
}

// IsMonthlyReportDay reports whether the monthly report is due on now's
// date: the 30th of any month, or February 28th. Months without a 30th
// other than February never get one.
func IsMonthlyReportDay(now time.Time) bool {
	return now.Day() == 30 || (now.Month() == time.February && now.Day() == 28)
}

// Summary is the data behind the monthly report and the statistics screen.
type Summary struct {
	TotalClients     int
	TotalSessions    int
	Threshold        int
	ThresholdClients []string
	ZeroClients      []string
	NewClients       []string
}

// Summarize evaluates every policy rule over l.
func Summarize(l ledger.Ledger, threshold int, now time.Time) Summary {
	return Summary{
		TotalClients:     len(l),
		TotalSessions:    l.TotalSessions(),
		Threshold:        threshold,
		ThresholdClients: ThresholdClients(l, threshold),
		ZeroClients:      ZeroClients(l),
		NewClients:       NewClients(l, now),
	}
}
