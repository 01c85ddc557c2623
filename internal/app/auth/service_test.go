package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vivekbharatha/vbank/internal/domain"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, []byte) error { return nil }

const testSecret = "test-secret"

func TestRegister(t *testing.T) {
	t.Run("hashes the password", func(t *testing.T) {
		users := &MockUserRepository{}
		db, _ := redismock.NewClientMock()
		svc := NewService(users, db, nopPublisher{}, testSecret, time.Hour, zap.NewNop())

		users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.PasswordHash != "" && u.PasswordHash != "s3cret-pass"
		})).Return(nil)

		user, err := svc.Register(context.Background(), RegisterParams{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Password:  "s3cret-pass",
		})
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
		users.AssertExpectations(t)
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		users := &MockUserRepository{}
		db, _ := redismock.NewClientMock()
		svc := NewService(users, db, nopPublisher{}, testSecret, time.Hour, zap.NewNop())

		_, err := svc.Register(context.Background(), RegisterParams{
			Email:    "ada@example.com",
			Password: "short",
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	storedUser := &domain.User{ID: 7, Email: "ada@example.com", PasswordHash: string(hash)}

	t.Run("issues a token and stores the session", func(t *testing.T) {
		users := &MockUserRepository{}
		db, redisMock := redismock.NewClientMock()
		svc := NewService(users, db, nopPublisher{}, testSecret, time.Hour, zap.NewNop())

		users.On("GetByEmail", mock.Anything, "ada@example.com").Return(storedUser, nil)
		redisMock.CustomMatch(func(expected, actual []interface{}) error {
			return nil
		}).ExpectSet("", "1", time.Hour).SetVal("OK")

		result, err := svc.Login(context.Background(), "ada@example.com", "s3cret-pass")
		require.NoError(t, err)
		require.NotEmpty(t, result.Token)

		parsed, err := jwt.Parse(result.Token, func(*jwt.Token) (any, error) {
			return []byte(testSecret), nil
		})
		require.NoError(t, err)
		claims := parsed.Claims.(jwt.MapClaims)
		assert.Equal(t, float64(7), claims["id"])
	})

	t.Run("wrong password", func(t *testing.T) {
		users := &MockUserRepository{}
		db, _ := redismock.NewClientMock()
		svc := NewService(users, db, nopPublisher{}, testSecret, time.Hour, zap.NewNop())

		users.On("GetByEmail", mock.Anything, "ada@example.com").Return(storedUser, nil)

		_, err := svc.Login(context.Background(), "ada@example.com", "nope")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email maps to invalid credentials", func(t *testing.T) {
		users := &MockUserRepository{}
		db, _ := redismock.NewClientMock()
		svc := NewService(users, db, nopPublisher{}, testSecret, time.Hour, zap.NewNop())

		users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrUserNotFound)

		_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestLogout(t *testing.T) {
	users := &MockUserRepository{}
	db, redisMock := redismock.NewClientMock()
	svc := NewService(users, db, nopPublisher{}, testSecret, time.Hour, zap.NewNop())

	redisMock.ExpectDel(SessionKey(7, "some-token")).SetVal(1)

	require.NoError(t, svc.Logout(context.Background(), 7, "some-token"))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
