// Package auth implements the dashboard's single-admin authentication:
// bcrypt-checked credentials exchanged for short-lived HS256 tokens.
package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"` // seconds
}

// Service validates credentials and issues tokens for the single admin
// account configured at startup.
type Service struct {
	username     string
	passwordHash string
	jwt          *JWTManager
}

func NewService(username, passwordHash, jwtSecret string, tokenDuration time.Duration) *Service {
	return &Service{
		username:     username,
		passwordHash: passwordHash,
		jwt:          NewJWTManager(jwtSecret, tokenDuration),
	}
}

// Login checks the credentials and returns an access token.
func (s *Service) Login(creds Credentials) (*TokenResponse, error) {
	if creds.Username != s.username || !VerifyPassword(creds.Password, s.passwordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(creds.Username)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwt.TokenDurationSeconds(),
	}, nil
}

// Validate parses and verifies an access token, returning the subject.
func (s *Service) Validate(token string) (string, error) {
	return s.jwt.ValidateAccessToken(token)
}
