package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/dmitrijs2005/lingokeeper/internal/dbx"
	"github.com/dmitrijs2005/lingokeeper/internal/logging"
	"github.com/dmitrijs2005/lingokeeper/internal/server/auth"
	"github.com/dmitrijs2005/lingokeeper/internal/server/config"
	"github.com/dmitrijs2005/lingokeeper/internal/server/models"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/desktopcodes"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/lingokeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the three tables. Every method takes
// the lock, so single-statement operations are atomic like their SQL
// counterparts.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]*models.User
	refresh map[string]*models.RefreshToken
	codes   map[string]*models.DesktopAuthCode

	usersErr   error
	refreshErr error
	codesErr   error

	findCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[int64]*models.User{},
		refresh: map[string]*models.RefreshToken{},
		codes:   map[string]*models.DesktopAuthCode{},
	}
}

type fakeUsers struct{ s *memStore }

func (f fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return nil, f.s.usersErr
	}
	for _, existing := range f.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	f.s.nextID++
	u.ID = f.s.nextID
	u.CreatedAt = time.Now()
	cp := *u
	f.s.users[u.ID] = &cp
	return u, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return nil, f.s.usersErr
	}
	for _, u := range f.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return nil, f.s.usersErr
	}
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (f fakeUsers) GetPasswordHash(_ context.Context, id int64) (string, bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return "", false, f.s.usersErr
	}
	u, ok := f.s.users[id]
	if !ok {
		return "", false, common.ErrorNotFound
	}
	return u.PasswordHash, u.Deactivated, nil
}

func (f fakeUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok || u.Deactivated {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f fakeUsers) Deactivate(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Deactivated = true
	u.PasswordHash = ""
	return nil
}

type fakeRefresh struct{ s *memStore }

func (f fakeRefresh) Create(_ context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.refreshErr != nil {
		return f.s.refreshErr
	}
	f.s.refresh[tokenHash] = &models.RefreshToken{TokenHash: tokenHash, UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (f fakeRefresh) Find(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.refresh[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f fakeRefresh) Delete(_ context.Context, tokenHash string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.refresh[tokenHash]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.refresh, tokenHash)
	return nil
}

func (f fakeRefresh) DeleteByUser(_ context.Context, userID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for k, t := range f.s.refresh {
		if t.UserID == userID {
			delete(f.s.refresh, k)
		}
	}
	return nil
}

type fakeCodes struct{ s *memStore }

func (f fakeCodes) Create(_ context.Context, c *models.DesktopAuthCode) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.codesErr != nil {
		return f.s.codesErr
	}
	c.CreatedAt = time.Now()
	cp := *c
	f.s.codes[c.CodeHash] = &cp
	return nil
}

func (f fakeCodes) FindByHash(_ context.Context, hash string) (*models.DesktopAuthCode, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.findCalls++
	c, ok := f.s.codes[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeCodes) Consume(_ context.Context, hash string, now time.Time) (*models.DesktopAuthCode, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.codesErr != nil {
		return nil, f.s.codesErr
	}
	c, ok := f.s.codes[hash]
	if !ok || c.UsedAt != nil || !c.ExpiresAt.After(now) {
		return nil, common.ErrorNotFound
	}
	used := now
	c.UsedAt = &used
	cp := *c
	return &cp, nil
}

func (f fakeCodes) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.codesErr != nil {
		return 0, f.s.codesErr
	}
	var n int64
	for k, c := range f.s.codes {
		if !c.ExpiresAt.After(now) {
			delete(f.s.codes, k)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct{ s *memStore }

func (m fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return fakeUsers{m.s} }
func (m fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return fakeRefresh{m.s} }
func (m fakeRepoManager) DesktopCodes(dbx.DBTX) desktopcodes.Repository   { return fakeCodes{m.s} }

// --- helpers ---

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: time.Hour,
		DesktopCodeValidityDuration:  5 * time.Minute,
	}
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return fn(ctx, nil)
}

// testClock is a settable clock shared by a service and its token issuer.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestUserService(t *testing.T, st *memStore, clk *testClock) *UserService {
	t.Helper()
	s := NewUserService(nil, fakeRepoManager{st}, auth.NewHasher(4), testConfig(), logging.Nop{})
	s.runTx = passthroughTx
	s.clock = clk.Now
	s.tokens.clock = clk.Now
	return s
}

func newTestDesktopService(t *testing.T, st *memStore, clk *testClock) *DesktopAuthService {
	t.Helper()
	s := NewDesktopAuthService(nil, fakeRepoManager{st}, testConfig(), logging.Nop{})
	s.runTx = passthroughTx
	s.clock = clk.Now
	s.tokens.clock = clk.Now
	return s
}

const testPassword = "correct horse battery"

var (
	seedOnce sync.Once
	seedHash string
	seedErr  error
)

// seedUser inserts an active account whose password is testPassword.
func seedUser(t *testing.T, st *memStore, email string) *models.User {
	t.Helper()
	seedOnce.Do(func() { seedHash, seedErr = auth.HashPassword(testPassword) })
	require.NoError(t, seedErr)

	u, err := fakeUsers{st}.Create(context.Background(), &models.User{
		Email:        email,
		Username:     "learner",
		PasswordHash: seedHash,
	})
	require.NoError(t, err)
	return u
}
