package security

import (
	"errors"
	"fmt"

	"github.com/jhoicas/estimate-api/internal/application/ports"
	"golang.org/x/crypto/bcrypt"
)

var _ ports.PasswordEncoder = (*BcryptEncoder)(nil)

// BcryptEncoder implementa PasswordEncoder con bcrypt (salt aleatorio por hash).
type BcryptEncoder struct {
	cost int
}

// NewBcryptEncoder construye el encoder. Un cost fuera de rango usa bcrypt.DefaultCost.
func NewBcryptEncoder(cost int) *BcryptEncoder {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptEncoder{cost: cost}
}

// Encode hashea la contraseña. Dos llamadas con la misma entrada producen hashes distintos.
func (e *BcryptEncoder) Encode(rawPassword string) (string, error) {
	if rawPassword == "" {
		return "", errors.New("bcrypt: contraseña vacía")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(rawPassword), e.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

// Matches compara en tiempo constante; cualquier fallo (mismatch o hash corrupto) es false.
func (e *BcryptEncoder) Matches(rawPassword, encodedPassword string) bool {
	if encodedPassword == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedPassword), []byte(rawPassword)) == nil
}
