package services_test

import (
	"concord/internal/core/services"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Token_round_trip(t *testing.T) {
	svc := services.NewTokenService("test-secret")
	userID := uuid.NewString()

	token, err := svc.GenerateToken(userID)
	require.NoError(t, err)

	sub, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, sub)
}

func Test_Token_rejects_wrong_secret(t *testing.T) {
	issuer := services.NewTokenService("secret-a")
	verifier := services.NewTokenService("secret-b")

	token, err := issuer.GenerateToken(uuid.NewString())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func Test_Token_rejects_garbage(t *testing.T) {
	svc := services.NewTokenService("test-secret")

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
