package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"votify/internal/client"
	"votify/internal/forms"
	"votify/internal/passwordreset"
	"votify/internal/session"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&client.APIError{Status: http.StatusConflict, Code: "already_voted"}, "You have already voted in this poll."},
		{fmt.Errorf("vote: %w", &client.APIError{Status: http.StatusBadRequest, Code: "poll_not_active"}), "This poll has ended."},
		{&client.APIError{Status: http.StatusUnauthorized, Code: "invalid_token"}, "Your session has expired. Please log in again."},
		{&client.APIError{Status: http.StatusBadRequest, Code: "invalid_token"}, "The reset link has expired. Start again."},
		{&client.APIError{Status: http.StatusBadGateway, Code: "bad_gateway"}, "The server had a problem. Try again later."},
		{&client.APIError{Status: http.StatusTeapot, Code: "odd", Message: "short and stout"}, "short and stout"},
		{&client.APIError{Status: http.StatusBadRequest, Code: "invalid_input", Fields: map[string]string{
			"password": "p", "email": "e",
		}}, "e; p"},
		{forms.Errors{"confirm": forms.MsgPasswordMismatch}, forms.MsgPasswordMismatch},
		{session.ErrNotLoggedIn, "Please log in first."},
		{passwordreset.ErrNoContinuation, "Start the password reset again."},
		{context.DeadlineExceeded, "The server did not answer in time."},
		{errors.New("boom"), "Something went wrong: boom"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Describe(tc.err), tc.err.Error())
	}
}

func TestNotifierQueuesAndDrops(t *testing.T) {
	n := New(2, nil)
	n.Info("saved")
	n.Fail(errors.New("boom"))
	n.Warn("dropped")
	n.Fail(nil)

	got := n.Drain()
	require.Len(t, got, 2)
	require.Equal(t, Info, got[0].Level)
	require.Equal(t, "saved", got[0].Message)
	require.Equal(t, Error, got[1].Level)
	require.EqualError(t, got[1].Err, "boom")
	require.Empty(t, n.Drain())
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "info", Info.String())
	require.Equal(t, "warn", Warn.String())
	require.Equal(t, "error", Error.String())
}
