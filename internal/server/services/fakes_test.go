package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/dbx"
	"github.com/dmitrijs2005/multichat/internal/server/models"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/users"
	"github.com/google/uuid"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// clock hands out strictly increasing timestamps, like clock_timestamp().
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		c.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

// --- users ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	clock   *clock
	byID    map[string]*models.User
	err     error
	created int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{clock: &clock{}, byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt = f.clock.next()
	f.byID[cp.ID] = &cp
	f.created++
	out := cp
	return &out, nil
}

func (f *fakeUsersRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	mu         sync.Mutex
	tokens     map[string]*models.RefreshToken
	issueErr   error
	consumeErr error
	revokeErr  error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Issue(_ context.Context, userID string, token string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issueErr != nil {
		return f.issueErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, ExpiresAt: time.Now().Add(ttl)}
	return nil
}

func (f *fakeRefreshRepo) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.tokens, token)
	return t, nil
}

func (f *fakeRefreshRepo) RevokeAll(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return 0, f.revokeErr
	}
	var n int64
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshRepo) has(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[token]
	return ok
}

func (f *fakeRefreshRepo) countFor(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// --- catalog ---

type fakeCatalogRepo struct {
	list  []models.Model
	err   error
	calls int
}

func (f *fakeCatalogRepo) List(context.Context) ([]models.Model, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Model, len(f.list))
	copy(out, f.list)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- messages ---

type fakeMessagesRepo struct {
	mu    sync.Mutex
	clock *clock
	rows  []models.Message

	// createErrAt fails the n-th Create call (1-based); 0 disables it.
	createErrAt int
	creates     int
	listErr     error
	deleteErr   error
}

func newFakeMessagesRepo() *fakeMessagesRepo {
	return &fakeMessagesRepo{clock: &clock{}}
}

func (f *fakeMessagesRepo) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErrAt == f.creates {
		return nil, errBoom{}
	}
	cp := *msg
	cp.ID = uuid.NewString()
	cp.CreatedAt = f.clock.next()
	f.rows = append(f.rows, cp)
	out := cp
	return &out, nil
}

func (f *fakeMessagesRepo) ListByUser(_ context.Context, userID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Message
	for _, m := range f.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessagesRepo) Delete(_ context.Context, id string, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	kept := f.rows[:0]
	for _, m := range f.rows {
		if m.ID == id && m.UserID == userID {
			continue
		}
		kept = append(kept, m)
	}
	f.rows = kept
	return nil
}

func (f *fakeMessagesRepo) all() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Message, len(f.rows))
	copy(out, f.rows)
	return out
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	c *fakeCatalogRepo
	m *fakeMessagesRepo
}

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(),
		r: newFakeRefreshRepo(),
		c: &fakeCatalogRepo{},
		m: newFakeMessagesRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error          { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Models(dbx.DBTX) catalog.Repository              { return m.c }
func (m *fakeRepoManager) Messages(dbx.DBTX) messages.Repository           { return m.m }

// --- invoker ---

type fakeInvoker struct {
	mu     sync.Mutex
	answer func(prompt, tag string) string
	calls  int
	ctxErr error
}

func (f *fakeInvoker) Invoke(ctx context.Context, prompt string, modelTag string) string {
	f.mu.Lock()
	f.calls++
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	if f.answer == nil {
		return `You said: "` + prompt + `"`
	}
	return f.answer(prompt, modelTag)
}
