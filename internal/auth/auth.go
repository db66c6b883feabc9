package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const RoleAdmin Role = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrNotFound           = errors.New("user not found")
)

// Users is where accounts and their roles live.
type Users interface {
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
	// Credentials returns the id and bcrypt hash for username, or ErrNotFound.
	Credentials(ctx context.Context, username string) (int64, string, error)
	// Role returns the user's role, or "" when none was granted.
	Role(ctx context.Context, userID int64) (Role, error)
	GrantRole(ctx context.Context, username string, role Role) error
}

type Store struct {
	sc    *securecookie.SecureCookie
	users Users
	log   *slog.Logger
}

type ctxKey string

const userIDKey ctxKey = "userID"

const sessionTTL = 14 * 24 * time.Hour

func NewStore(users Users, hashKey, blockKey []byte, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, users: users, log: logger.With("component", "auth")}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

func (s *Store) CreateUser(ctx context.Context, username, password string) (int64, error) {
	if username == "" || password == "" {
		return 0, errors.New("username and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.users.CreateUser(ctx, username, hash)
}

func (s *Store) GrantRole(ctx context.Context, username string, role Role) error {
	return s.users.GrantRole(ctx, username, role)
}

// Authenticate checks the password and returns the user id. Unknown users
// and wrong passwords both come back as ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	id, hash, err := s.users.Credentials(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return 0, ErrInvalidCredentials
	}
	if err != nil {
		return 0, err
	}
	if !CheckPassword(hash, password) {
		return 0, ErrInvalidCredentials
	}
	return id, nil
}

func (s *Store) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	role, err := s.users.Role(ctx, userID)
	if err != nil {
		return false, err
	}
	return role == RoleAdmin, nil
}

type Session struct {
	UserID int64
	Issued int64
}

const cookieName = "resort_session"

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	encoded, err := s.sc.Encode(cookieName, Session{UserID: userID, Issued: time.Now().Unix()})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := s.sc.Decode(cookieName, c.Value, &sess); err != nil {
		return Session{}, false
	}
	if sess.UserID <= 0 {
		return Session{}, false
	}
	return sess, true
}

// RequireAdmin lets the request through only for a signed-in user holding
// the admin role. Anonymous requests are sent to the login page; signed-in
// users without the role get 403.
func (s *Store) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		admin, err := s.IsAdmin(r.Context(), sess.UserID)
		if err != nil {
			s.log.ErrorContext(r.Context(), "role lookup failed", "user_id", sess.UserID, "err", err)
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		if !admin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok
}
