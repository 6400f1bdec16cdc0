package notify

import (
	"fmt"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
)

func russianForm(n int) plural.Form {
	if n < 0 {
		n = -n
	}
	return plural.Cardinal.MatchPlural(language.Russian, n, 0, 0, 0, 0)
}

// SessionsWord returns "занятие", "занятия" or "занятий" agreeing with n.
func SessionsWord(n int) string {
	switch russianForm(n) {
	case plural.One:
		return "занятие"
	case plural.Few:
		return "занятия"
	default:
		return "занятий"
	}
}

// Sessions formats n with the agreeing noun, e.g. "3 занятия".
func Sessions(n int) string {
	return fmt.Sprintf("%d %s", n, SessionsWord(n))
}

// SessionsInstrumental is the form used after "с": "с 1 занятием",
// "с 2 занятиями".
func SessionsInstrumental(n int) string {
	if russianForm(n) == plural.One {
		return "занятием"
	}
	return "занятиями"
}
