package auth

import (
	"context"
	"sync"

	"github.com/example/resort-booking/internal/db"
)

// PGUsers keeps accounts in the users and user_roles tables.
type PGUsers struct {
	db *db.DB
}

func NewPGUsers(d *db.DB) *PGUsers { return &PGUsers{db: d} }

func (u *PGUsers) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := u.db.QueryRow(ctx, `INSERT INTO users(username, password_bcrypt) VALUES ($1,$2) RETURNING id`, username, passwordHash).Scan(&id)
	if db.Code(err) == db.CodeUniqueViolation {
		return 0, ErrUserExists
	}
	return id, err
}

func (u *PGUsers) Credentials(ctx context.Context, username string) (int64, string, error) {
	var (
		id   int64
		hash string
	)
	err := u.db.QueryRow(ctx, `SELECT id, password_bcrypt FROM users WHERE username=$1`, username).Scan(&id, &hash)
	if db.IsNotFound(err) {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", db.WrapNotFound(err)
	}
	return id, hash, nil
}

func (u *PGUsers) Role(ctx context.Context, userID int64) (Role, error) {
	var role string
	err := u.db.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id=$1`, userID).Scan(&role)
	if db.IsNotFound(err) {
		return "", nil
	}
	return Role(role), err
}

func (u *PGUsers) GrantRole(ctx context.Context, username string, role Role) error {
	n, err := u.db.ExecCount(ctx, `
INSERT INTO user_roles(user_id, role)
SELECT id, $2 FROM users WHERE username=$1
ON CONFLICT (user_id) DO UPDATE SET role=EXCLUDED.role, updated_at=now()`, username, string(role))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MemUsers is the in-process account list used with the memory store.
type MemUsers struct {
	mu     sync.RWMutex
	nextID int64
	byName map[string]memUser
	roles  map[int64]Role
}

type memUser struct {
	id   int64
	hash string
}

func NewMemUsers() *MemUsers {
	return &MemUsers{byName: make(map[string]memUser), roles: make(map[int64]Role)}
}

func (u *MemUsers) CreateUser(_ context.Context, username, passwordHash string) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byName[username]; ok {
		return 0, ErrUserExists
	}
	u.nextID++
	u.byName[username] = memUser{id: u.nextID, hash: passwordHash}
	return u.nextID, nil
}

func (u *MemUsers) Credentials(_ context.Context, username string) (int64, string, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	m, ok := u.byName[username]
	if !ok {
		return 0, "", ErrNotFound
	}
	return m.id, m.hash, nil
}

func (u *MemUsers) Role(_ context.Context, userID int64) (Role, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.roles[userID], nil
}

func (u *MemUsers) GrantRole(_ context.Context, username string, role Role) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.byName[username]
	if !ok {
		return ErrNotFound
	}
	u.roles[m.id] = role
	return nil
}
