// Package auth issues and checks board access tokens. A token is an HS256
// JWT whose subject is the board id; boards with a passcode only get one
// after the passcode is checked against its bcrypt hash.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/noteboard/noteboard/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	passcodeCost = 12
	tokenTTL     = 24 * time.Hour
)

type Service struct {
	boards    store.Store
	jwtSecret []byte
	now       func() time.Time
}

func NewService(boards store.Store, jwtSecret string) *Service {
	return &Service{
		boards:    boards,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// HashPasscode returns the bcrypt hash stored for a protected board. An
// empty passcode yields an empty hash, meaning the board is open.
func HashPasscode(passcode string) (string, error) {
	if passcode == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), passcodeCost)
	if err != nil {
		return "", fmt.Errorf("hash passcode: %w", err)
	}
	return string(hash), nil
}

// Authorize checks passcode against the board and returns a token for it.
func (s *Service) Authorize(ctx context.Context, boardID, passcode string) (string, error) {
	b, err := s.boards.GetBoard(ctx, boardID)
	if err != nil {
		return "", err
	}
	if b.PasscodeHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(b.PasscodeHash), []byte(passcode)); err != nil {
			return "", ErrInvalidCredentials
		}
	}
	return s.IssueToken(boardID)
}

// IssueToken signs a token granting access to one board.
func (s *Service) IssueToken(boardID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": boardID,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken returns the board id a token grants access to.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	boardID, ok := claims["sub"].(string)
	if !ok || boardID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return boardID, nil
}
