package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role segue a hierarquia admin > accountant > viewer.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleAccountant Role = "accountant"
	RoleAdmin      Role = "admin"
)

var roleLevel = map[Role]int{
	RoleViewer:     1,
	RoleAccountant: 2,
	RoleAdmin:      3,
}

var ErrInvalidToken = errors.New("token inválido ou expirado")

// ParseRole aceita maiúsculas/minúsculas; papel desconhecido é erro.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleLevel[r]; !ok {
		return "", fmt.Errorf("papel desconhecido: %q", s)
	}
	return r, nil
}

// AtLeast diz se r tem pelo menos as permissões de min.
func (r Role) AtLeast(min Role) bool {
	have, ok := roleLevel[r]
	if !ok {
		return false
	}
	return have >= roleLevel[min]
}

type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken assina um JWT HS256 para subject com o papel e validade dados.
func IssueToken(secret []byte, subject string, role Role, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("segredo JWT vazio")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("erro assinando token: %w", err)
	}
	return signed, nil
}

// ParseToken valida assinatura, expiração e papel.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, ok := roleLevel[claims.Role]; !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
