// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/danielhkuo/abri/kvstore"
	"github.com/danielhkuo/abri/models"
)

// Local store keys owned by the authentication flow
const (
	KeyToken  = "userToken"
	KeyUserID = "userId"
	KeyRole   = "userRole"
)

var (
	ErrInvalidToken = errors.New("invalid token format")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// Session is the single writer of the credential keys. Readers take the
// token once from Token and pass it down explicitly.
type Session struct {
	store kvstore.Store
}

func NewSession(store kvstore.Store) *Session {
	return &Session{store: store}
}

// Login persists the bearer token and the user it belongs to. The user id
// and role of any previous session are dropped, even when userID or role
// is empty.
func (s *Session) Login(ctx context.Context, token, userID, role string) error {
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return ErrInvalidToken
	}

	if err := s.store.RemoveMany(ctx, KeyUserID, KeyRole); err != nil {
		return fmt.Errorf("failed to clear previous user: %w", err)
	}
	if err := s.store.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if userID != "" {
		if err := s.store.Set(ctx, KeyUserID, userID); err != nil {
			return fmt.Errorf("failed to save user id: %w", err)
		}
	}
	if role != "" {
		if err := s.store.Set(ctx, KeyRole, role); err != nil {
			return fmt.Errorf("failed to save user role: %w", err)
		}
	}
	return nil
}

// Logout removes every credential key
func (s *Session) Logout(ctx context.Context) error {
	return s.store.RemoveMany(ctx, KeyToken, KeyUserID, KeyRole)
}

// Token returns the stored bearer token, or "" when logged out
func (s *Session) Token(ctx context.Context) string {
	token, _ := s.store.Get(ctx, KeyToken)
	return token
}

// User returns the logged-in user
func (s *Session) User(ctx context.Context) (models.User, error) {
	if s.Token(ctx) == "" {
		return models.User{}, ErrNotLoggedIn
	}
	id, _ := s.store.Get(ctx, KeyUserID)
	role, _ := s.store.Get(ctx, KeyRole)
	return models.User{ID: id, Role: role}, nil
}

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewLocalID returns the display-only identifier of a staged payload.
// It is never sent to the server.
func NewLocalID() string {
	return uuid.NewString()
}

// NewAttemptID returns a time-ordered identifier used to correlate the log
// lines of one submit, retry or cancel.
func NewAttemptID() string {
	return ulid.Make().String()
}

// LocalIDFor returns a local identifier derived from content, stable across
// calls with the same content.
func LocalIDFor(content string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(content)).String()
}
