package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost es el costo bcrypt usado en producción.
const DefaultCost = 10

// Hash devuelve el hash bcrypt (sal incluida) del password en claro.
func Hash(plain string, cost int) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("empty password")
	}
	if cost == 0 {
		cost = DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compara en tiempo constante un password en claro contra un hash
// almacenado. Un hash vacío nunca verifica.
func Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
