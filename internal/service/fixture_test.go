package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/authgate/internal/db"
	"github.com/templui/authgate/internal/db/dbtest"
	"github.com/templui/authgate/internal/model"
	"github.com/templui/authgate/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentReset struct {
	email string
	token string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentReset
	err  error
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentReset{email: email, token: token})
	return nil
}

func (n *recordingNotifier) Sent() []sentReset {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentReset(nil), n.sent...)
}

type fixture struct {
	db         *sqlx.DB
	users      repository.UserRepository
	tokens     repository.TokenRepository
	clock      *fakeClock
	auth       *Authenticator
	manager    *TokenManager
	sessions   *SessionService
	resets     *PasswordResetService
	userSvc    *UserService
	notifier   *recordingNotifier
	accessTTL  time.Duration
	storeCheck bool
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStoreCheck(t, true)
}

func newFixtureWithStoreCheck(t *testing.T, storeCheck bool) *fixture {
	t.Helper()

	database := dbtest.New(t)
	f := &fixture{
		db:         database,
		users:      repository.NewUserRepository(database),
		tokens:     repository.NewTokenRepository(database),
		clock:      &fakeClock{now: time.Now().UTC().Truncate(time.Second)},
		notifier:   &recordingNotifier{},
		accessTTL:  30 * time.Minute,
		storeCheck: storeCheck,
	}

	manager, err := NewTokenManager(f.tokens, f.clock, &TokenConfig{Secret: testSecret, Algorithm: "HS256"})
	require.NoError(t, err)

	f.manager = manager
	f.auth = NewAuthenticator(f.users, bcrypt.MinCost)
	f.sessions = NewSessionService(f.auth, f.manager, f.accessTTL, storeCheck)
	f.resets = NewPasswordResetService(f.users, f.manager, f.auth, db.NewTransactor(database), f.notifier, 10*time.Minute, time.Second)
	f.userSvc = NewUserService(f.users, f.auth)

	t.Cleanup(f.resets.Wait)
	return f
}

func (f *fixture) register(t *testing.T, username, email, password string, status model.UserStatus) *model.User {
	t.Helper()
	ctx := context.Background()

	user, err := f.userSvc.Register(ctx, username, email, password)
	require.NoError(t, err)
	if status != model.UserStatusActive {
		require.NoError(t, f.users.UpdateStatus(ctx, user.ID, status))
		user.Status = status
	}
	return user
}

func (f *fixture) tokenStatus(t *testing.T, token string) model.TokenStatus {
	t.Helper()
	stored, err := f.tokens.ByToken(context.Background(), token)
	require.NoError(t, err)
	return stored.Status
}

var errNotifier = errors.New("smtp down")
