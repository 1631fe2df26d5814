package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndVerify(t *testing.T) {
	cfg := testConfig()
	cfg.Security.BcryptCost = 4 // min cost keeps the test fast
	manager := NewPasswordManager(cfg)

	hash, err := manager.HashPassword("correct-horse9")
	require.NoError(t, err)
	require.NotEqual(t, "correct-horse9", hash)

	require.NoError(t, manager.VerifyPassword("correct-horse9", hash))
	require.Error(t, manager.VerifyPassword("wrong-password1", hash))
}

func TestValidatePassword(t *testing.T) {
	manager := NewPasswordManager(testConfig())

	require.NoError(t, manager.ValidatePassword("abcdefg1"))
	require.Error(t, manager.ValidatePassword("short1"), "too short")
	require.Error(t, manager.ValidatePassword("allletters"), "no digits")
	require.Error(t, manager.ValidatePassword("12345678"), "no letters")
}
