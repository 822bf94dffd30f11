package main

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"votify/internal/client"
	"votify/internal/domain/poll"
	"votify/internal/forms"
)

func init() {
	color.NoColor = true
}

func TestParseID(t *testing.T) {
	id, err := parseID("42", "poll id")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseID(bad, "poll id")
		require.Error(t, err, bad)
	}
}

func TestParseEndsAt(t *testing.T) {
	got, err := parseEndsAt("")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = parseEndsAt("48h")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(48*time.Hour), *got, time.Minute)

	got, err = parseEndsAt("2030-01-02T15:04:05Z")
	require.NoError(t, err)
	require.Equal(t, 2030, got.Year())

	_, err = parseEndsAt("next tuesday")
	require.Error(t, err)
}

func TestRetryable(t *testing.T) {
	require.False(t, retryable(nil))
	require.True(t, retryable(forms.Errors{"code": forms.MsgInvalidCode}))
	require.True(t, retryable(fmt.Errorf("verify: %w", &client.APIError{Status: 400, Code: "invalid_code"})))
	require.False(t, retryable(&client.APIError{Status: 429, Code: "too_many_attempts"}))
}

func TestRenderPolls(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ends := now.Add(26 * time.Hour)
	var buf bytes.Buffer
	renderPolls(&buf, []poll.Poll{
		{ID: 7, Question: "Best pizza?", Category: "food", Voters: 3, Status: poll.StatusActive, EndsAt: &ends},
	}, now)
	out := buf.String()
	require.Contains(t, out, "Best pizza?")
	require.Contains(t, out, "1d 2h")

	buf.Reset()
	renderPolls(&buf, nil, now)
	require.Contains(t, buf.String(), "No polls to show.")
}

func TestTruncateAndBar(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
	require.Equal(t, "██████████░░░░░░░░░░", bar(50, 20))
	require.Equal(t, "░░░░", bar(-5, 4))
}
