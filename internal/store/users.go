package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/pkg/logger"
)

// dummyHash is compared against when the account does not exist, so a
// failed login takes the same time whether or not the email is registered.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// UserStore holds user records keyed by email.
type UserStore struct {
	client *redis.Client
	logger *logger.Logger
}

// NewUserStore creates a user store backed by the given Redis client.
func NewUserStore(client *redis.Client, log *logger.Logger) *UserStore {
	return &UserStore{client: client, logger: log}
}

func userKey(email string) string {
	return "user:" + email
}

// NormalizeEmail lowercases and trims an email for use as a store key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a new account. The password is stored as a bcrypt
// hash, never in plaintext. Returns model.ErrConflict if the email is
// already registered.
func (s *UserStore) Create(ctx context.Context, email, password, fullName string) (*model.User, error) {
	email = NormalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	record := model.StoredUser{
		Email:          email,
		FullName:       fullName,
		HashedPassword: string(hash),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	err = withRetry(ctx, "user_create", func() error {
		created, err := s.client.SetNX(ctx, userKey(email), data, 0).Result()
		if err != nil {
			return err
		}
		if !created {
			return model.ErrConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("email", email))

	user := record.Public()
	return &user, nil
}

// Lookup fetches a user record by email. Returns model.ErrNotFound when
// the email is not registered.
func (s *UserStore) Lookup(ctx context.Context, email string) (*model.StoredUser, error) {
	email = NormalizeEmail(email)

	var data string
	err := withRetry(ctx, "user_lookup", func() error {
		var err error
		data, err = s.client.Get(ctx, userKey(email)).Result()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record model.StoredUser
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %s: %w", email, err)
	}
	return &record, nil
}

// Verify checks an email/password pair. The bcrypt comparison is
// constant-time with respect to the password; an unknown email still pays
// the hash cost. Returns model.ErrInvalidCredentials on any failure.
func (s *UserStore) Verify(ctx context.Context, email, password string) (*model.User, error) {
	record, err := s.Lookup(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.HashedPassword), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	user := record.Public()
	return &user, nil
}
