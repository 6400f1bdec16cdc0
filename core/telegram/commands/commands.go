// Package commands describes slash commands exposed by the bot.
package commands

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are hidden from the menu and wrapped with the
	// operator check.
	AdminOnly bool
	Hidden    bool
	// Aliases are extra names accepted when typed as text, with or without
	// the slash.
	Aliases []string
}

var (
	errNoHandler     = errors.New("commands: handler is required")
	errNoDescription = errors.New("commands: description is required")
	errBadName       = errors.New("commands: name must start with '/'")
)

// Validate checks that a command registered under name can be served.
func (c Command) Validate(name string) error {
	switch {
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return errBadName
	case c.Handler == nil:
		return errNoHandler
	case strings.TrimSpace(c.Description) == "":
		return errNoDescription
	}
	return nil
}

// Visible reports whether the command belongs in the public command menu.
func (c Command) Visible() bool { return !c.Hidden && !c.AdminOnly }

// Normalize turns typed text into a lookup key: "/Start@studio_bot now"
// becomes "/start". Text without a leading slash gets one.
func Normalize(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	name = strings.ToLower(name)
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}
