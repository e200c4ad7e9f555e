package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgea/internal/model"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3nha-forte")
	require.NoError(t, err)
	assert.NotEqual(t, "s3nha-forte", hash)

	assert.True(t, CheckPassword(hash, "s3nha-forte"))
	assert.False(t, CheckPassword(hash, "outra"))
}

func TestIssueAndParse(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	token, exp, err := m.Issue(&model.Account{ID: 42, Role: model.RoleOrganizer})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	actor, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, model.Actor{AccountID: 42, Role: model.RoleOrganizer}, actor)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewManager("other-secret", time.Hour)
	require.NoError(t, err)

	token, _, err := other.Issue(&model.Account{ID: 1, Role: model.RoleStudent})
	require.NoError(t, err)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err = m.Issue(&model.Account{ID: 1, Role: model.RoleStudent})
	require.NoError(t, err)
	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)
}
