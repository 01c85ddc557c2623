package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vivekbharatha/vbank/internal/domain"
	"github.com/vivekbharatha/vbank/internal/events"
	"github.com/vivekbharatha/vbank/internal/repository/users_repo"
)

type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Service issues and revokes sessions. A session is a signed JWT plus a
// redis record; both must agree for a request to be authenticated, so
// logout takes effect immediately rather than at token expiry.
type Service interface {
	Register(ctx context.Context, p RegisterParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, userID int64, token string) error
}

type service struct {
	users     users_repo.UserRepository
	redis     *redis.Client
	publisher events.Publisher
	jwtSecret []byte
	expiresIn time.Duration
	logger    *zap.Logger
}

func NewService(
	users users_repo.UserRepository,
	redisClient *redis.Client,
	publisher events.Publisher,
	jwtSecret string,
	expiresIn time.Duration,
	logger *zap.Logger,
) Service {
	return &service{
		users:     users,
		redis:     redisClient,
		publisher: publisher,
		jwtSecret: []byte(jwtSecret),
		expiresIn: expiresIn,
		logger:    logger,
	}
}

// SessionKey is the redis key holding a user's active session token.
func SessionKey(userID int64, token string) string {
	return fmt.Sprintf("auth:%d:%s", userID, token)
}

func (s *service) Register(ctx context.Context, p RegisterParams) (*domain.User, error) {
	if p.Email == "" || p.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	if len(p.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))

	if payload, err := json.Marshal(user); err == nil {
		if err := s.publisher.Publish(ctx, domain.UserRegisteredTopic, user.Email, payload); err != nil {
			s.logger.Error("failed to publish user registration", zap.Error(err))
		}
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"id":  user.ID,
		"exp": time.Now().Add(s.expiresIn).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.redis.Set(ctx, SessionKey(user.ID, token), "1", s.expiresIn).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return &LoginResult{Token: token, User: user}, nil
}

func (s *service) Logout(ctx context.Context, userID int64, token string) error {
	if err := s.redis.Del(ctx, SessionKey(userID, token)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	s.logger.Info("user logged out", zap.Int64("user_id", userID))
	return nil
}
