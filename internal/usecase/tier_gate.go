package usecase

import (
	"Infinity/internal/domain/models"
)

// TierGate maps shared secrets to tiers with a flat string comparison.
// It is a placeholder, not a credential system: no hashing, no lockout.
type TierGate struct {
	secrets map[string]models.UserStatus
}

// DefaultTierSecrets returns the built-in secret table.
func DefaultTierSecrets() map[string]models.UserStatus {
	return map[string]models.UserStatus{
		"2741520": models.UserVerified,
		"1448135": models.UserVIP,
	}
}

func NewTierGate(secrets map[string]models.UserStatus) *TierGate {
	if len(secrets) == 0 {
		secrets = DefaultTierSecrets()
	}
	return &TierGate{secrets: secrets}
}

// Resolve returns the tier unlocked by secret.
func (g *TierGate) Resolve(secret string) (models.UserStatus, error) {
	if status, ok := g.secrets[secret]; ok && secret != "" {
		return status, nil
	}
	return "", models.ErrWrongPassword
}
