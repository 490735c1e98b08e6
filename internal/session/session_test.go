package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewManager("secret", "chat-feed", time.Hour)

	token, expires, err := m.Issue(7, "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	m := NewManager("secret", "chat-feed", time.Hour)
	token, _, err := m.Issue(1, "alice")
	require.NoError(t, err)

	_, err = NewManager("other", "chat-feed", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = NewManager("secret", "someone-else", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = m.Validate("garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewManager("secret", "chat-feed", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := m.Issue(1, "alice")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}
