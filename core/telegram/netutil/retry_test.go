package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", fmt.Errorf("send: %w", context.Canceled), false},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"url timeout", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}, true},
		{"flood", tele.FloodError{RetryAfter: 3}, true},
		{"server", &tele.Error{Code: 502, Description: "Bad Gateway"}, true},
		{"bad request", &tele.Error{Code: 400, Description: "chat not found"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ShouldRetry(tc.err))
		})
	}
}

func TestStatusCodeAndRetryAfter(t *testing.T) {
	require.Equal(t, 429, StatusCode(tele.FloodError{RetryAfter: 1}))
	require.Equal(t, 403, StatusCode(fmt.Errorf("wrap: %w", &tele.Error{Code: 403})))
	require.Zero(t, StatusCode(errors.New("x")))

	d, ok := RetryAfter(tele.FloodError{RetryAfter: 4})
	require.True(t, ok)
	require.Equal(t, 4*time.Second, d)

	_, ok = RetryAfter(&tele.Error{Code: 500})
	require.False(t, ok)
}
