package accounts

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

const minPasswordLength = 8

// PasswordManager handles password hashing and verification
type PasswordManager struct {
	cost int
}

// NewPasswordManager creates a new password manager
func NewPasswordManager() *PasswordManager {
	return &PasswordManager{cost: bcrypt.DefaultCost}
}

// HashPassword hashes a plaintext password with bcrypt
func (pm *PasswordManager) HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", types.NewValidationError(types.ErrCodeInvalidInput, "Password must be at least 8 characters long.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), pm.cost)
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "Failed to hash password.", err)
	}

	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a stored hash
func (pm *PasswordManager) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
