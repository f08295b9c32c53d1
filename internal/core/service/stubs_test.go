package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

var testLog = zerolog.Nop()

// --- users ---

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
	clock time.Time

	discardErr     error
	updateErr      error
	clearAvatarErr error
}

func newMemUsers() *memUsers {
	return &memUsers{
		users: make(map[string]*domain.User),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Settings.Roles = append([]string(nil), u.Settings.Roles...)
	if u.Avatar != nil {
		av := *u.Avatar
		c.Avatar = &av
	}
	return &c
}

// add stores u directly, assigning an id and a strictly increasing creation time.
func (r *memUsers) add(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", r.seq)
	}
	u.CreatedAt = r.clock.Add(time.Duration(r.seq) * time.Minute)
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = cloneUser(u)
	return cloneUser(u)
}

func (r *memUsers) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id])
}

func (r *memUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	return r.add(cloneUser(user)), nil
}

func (r *memUsers) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	if _, ok := r.users[user.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u := r.get(id); u != nil {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) FindKeptByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.Kept() {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *memUsers) find(match func(u *domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Kept() && match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) FindKeptByLogin(_ context.Context, login string) (*domain.User, error) {
	login = strings.ToLower(login)
	return r.find(func(u *domain.User) bool {
		return strings.ToLower(u.Username) == login || strings.ToLower(u.Email) == login
	})
}

func (r *memUsers) FindKeptByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *memUsers) taken(match func(u *domain.User) bool, excludeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID != excludeID && match(u) {
			return true
		}
	}
	return false
}

func (r *memUsers) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	return r.taken(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) }, excludeID), nil
}

func (r *memUsers) UsernameTaken(_ context.Context, username, excludeID string) (bool, error) {
	return r.taken(func(u *domain.User) bool { return strings.EqualFold(u.Username, username) }, excludeID), nil
}

func (r *memUsers) mutate(id string, fn func(u *domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.Kept() {
		return domain.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (r *memUsers) Discard(_ context.Context, id string, at time.Time) error {
	if r.discardErr != nil {
		return r.discardErr
	}
	return r.mutate(id, func(u *domain.User) { u.DiscardedAt = &at })
}

func (r *memUsers) ListKept(_ context.Context, limit, offset int) ([]*domain.User, error) {
	r.mu.Lock()
	kept := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Kept() {
			kept = append(kept, cloneUser(u))
		}
	}
	r.mu.Unlock()

	sort.Slice(kept, func(i, j int) bool { return kept[i].CreatedAt.Before(kept[j].CreatedAt) })
	if offset >= len(kept) {
		return []*domain.User{}, nil
	}
	end := min(offset+limit, len(kept))
	return kept[offset:end], nil
}

func (r *memUsers) CountKept(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.users {
		if u.Kept() {
			n++
		}
	}
	return n, nil
}

func (r *memUsers) TrackSignIn(_ context.Context, id, ip string, at time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.LastSignInAt, u.LastSignInIP = u.CurrentSignInAt, u.CurrentSignInIP
		u.CurrentSignInAt, u.CurrentSignInIP = &at, ip
		u.SignInCount++
	})
}

func (r *memUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.mutate(id, func(u *domain.User) { u.PasswordHash = passwordHash })
}

func (r *memUsers) ClearAvatar(_ context.Context, id string) error {
	if r.clearAvatarErr != nil {
		return r.clearAvatarErr
	}
	return r.mutate(id, func(u *domain.User) { u.Avatar = nil })
}

func (r *memUsers) SetAvatarVariant(_ context.Context, userID, avatarKey, variantKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.Avatar == nil || u.Avatar.Key != avatarKey {
		return false, nil
	}
	u.Avatar.VariantKey = variantKey
	return true, nil
}

// --- allowlist ---

type memAllowlist struct {
	mu   sync.Mutex
	rows map[string]*domain.AllowlistedToken

	recordErr    error
	revokeErr    error
	checkErr     error
	ignoreRevoke bool
}

func newMemAllowlist() *memAllowlist {
	return &memAllowlist{rows: make(map[string]*domain.AllowlistedToken)}
}

func (a *memAllowlist) Record(_ context.Context, token *domain.AllowlistedToken) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recordErr != nil {
		return a.recordErr
	}
	if _, ok := a.rows[token.Jti]; ok {
		return domain.ErrDuplicateToken
	}
	row := *token
	a.rows[token.Jti] = &row
	return nil
}

func (a *memAllowlist) IsAllowlisted(_ context.Context, jti string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.checkErr != nil {
		return false, a.checkErr
	}
	_, ok := a.rows[jti]
	return ok, nil
}

func (a *memAllowlist) Revoke(_ context.Context, jti string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.revokeErr != nil {
		return a.revokeErr
	}
	if !a.ignoreRevoke {
		delete(a.rows, jti)
	}
	return nil
}

func (a *memAllowlist) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.revokeErr != nil {
		return 0, a.revokeErr
	}
	var n int64
	for jti, row := range a.rows {
		if row.UserID == userID {
			delete(a.rows, jti)
			n++
		}
	}
	return n, nil
}

func (a *memAllowlist) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int64
	for jti, row := range a.rows {
		if row.ExpiresAt.Before(now) {
			delete(a.rows, jti)
			n++
		}
	}
	return n, nil
}

func (a *memAllowlist) count(userID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, row := range a.rows {
		if row.UserID == userID {
			n++
		}
	}
	return n
}

// --- hashing ---

type stubHasher struct{}

func (stubHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (stubHasher) Verify(hash, plain string) bool { return hash == "hashed:"+plain }

// --- avatar storage ---

type memStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
	types map[string]string

	putErr    error
	deleteErr error
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string][]byte), types: make(map[string]string)}
}

func (s *memStorage) Put(_ context.Context, key, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.blobs[key] = append([]byte(nil), data...)
	s.types[key] = contentType
	return nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.blobs, key)
	delete(s.types, key)
	return nil
}

func (s *memStorage) URL(_ context.Context, key string) (string, error) {
	return "mem://" + key, nil
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok
}

func (s *memStorage) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

type stubQueue struct {
	jobs []ports.VariantJob
}

func (q *stubQueue) Enqueue(job ports.VariantJob) {
	q.jobs = append(q.jobs, job)
}

// --- password reset ---

type memResets struct {
	tokens map[string]string
	issued int
}

func newMemResets() *memResets {
	return &memResets{tokens: make(map[string]string)}
}

func (r *memResets) Issue(_ context.Context, userID string) (string, error) {
	r.issued++
	token := fmt.Sprintf("reset-%s-%d", userID, r.issued)
	r.tokens[token] = userID
	return token, nil
}

func (r *memResets) Lookup(_ context.Context, token string) (string, error) {
	id, ok := r.tokens[token]
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (r *memResets) Consume(_ context.Context, token string) (string, error) {
	id, ok := r.tokens[token]
	if !ok {
		return "", domain.ErrNotFound
	}
	delete(r.tokens, token)
	return id, nil
}

type sentReset struct {
	userID string
	token  string
}

type stubNotifier struct {
	sent []sentReset
}

func (n *stubNotifier) NotifyPasswordReset(_ context.Context, user *domain.User, token string) error {
	n.sent = append(n.sent, sentReset{userID: user.ID, token: token})
	return nil
}

// --- helpers ---

const validPassword = "Secr3t@pw"

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func seedUser(users *memUsers, username, email string) *domain.User {
	return users.add(&domain.User{
		Username:     username,
		Email:        email,
		FirstName:    "Alice",
		LastName:     "Smith",
		PasswordHash: "hashed:" + validPassword,
		Settings:     domain.Settings{Roles: []string{domain.RoleUser}},
	})
}

func fieldMessages(t *testing.T, err error) map[string][]string {
	t.Helper()
	verr, ok := err.(*domain.ValidationError)
	if !ok {
		t.Fatalf("expected *domain.ValidationError, got %T (%v)", err, err)
	}
	return verr.Fields
}

func hasMessage(fields map[string][]string, field, msg string) bool {
	for _, m := range fields[field] {
		if m == msg {
			return true
		}
	}
	return false
}
