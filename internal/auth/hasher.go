package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is the bcrypt work factor for stored passwords.
const bcryptCost = 12

// PasswordHasher abstracts bcrypt operations for testability.
type PasswordHasher interface {
	CompareHashAndPassword(hashedPassword, password string) error
	GenerateFromPassword(password string) (string, error)
}

// bcryptHasher is the production PasswordHasher.
type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns the production hasher. The CLI and the user
// handlers share it with AuthService.
func NewBcryptHasher() PasswordHasher {
	return &bcryptHasher{cost: bcryptCost}
}

func (b *bcryptHasher) CompareHashAndPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (b *bcryptHasher) GenerateFromPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
