// Package identity authenticates admins with cookie sessions and game
// clients with signed player tokens.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/questboard/internal/apperr"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/questboard"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no valid admin session")
)

const sessionTimeLayout = "2006-01-02T15:04:05.000Z"

// Session is a signed-in admin.
type Session struct {
	ID        string
	Admin     questboard.Admin
	ExpiresAt time.Time
}

// Admins signs admins in and out. Admin accounts live in the admin_users
// collection; sessions live in the admin_sessions table.
type Admins struct {
	db     *sql.DB
	docs   docstore.Querier
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewAdmins(db *sql.DB, docs docstore.Querier, ttl time.Duration, logger *slog.Logger) *Admins {
	return &Admins{db: db, docs: docs, ttl: ttl, logger: logger, now: time.Now}
}

// SeedAdmin creates the admin account for email when none exists. An
// existing account is left untouched.
func (a *Admins) SeedAdmin(ctx context.Context, email, password, name string) (questboard.Admin, error) {
	email = normalizeEmail(email)
	if existing, err := a.byEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return questboard.Admin{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return questboard.Admin{}, fmt.Errorf("hashing password: %w", err)
	}
	admin := questboard.Admin{
		ID:           docstore.NewID(),
		Email:        email,
		Name:         name,
		Role:         questboard.RoleAdmin,
		PasswordHash: string(hash),
		CreatedAt:    a.now().UTC(),
	}
	if err := a.docs.Put(ctx, questboard.CollAdminUsers, admin.ID, admin); err != nil {
		return questboard.Admin{}, fmt.Errorf("saving admin: %w", err)
	}
	a.logger.Info("seeded admin account", "email", email)
	return admin, nil
}

// SignIn checks credentials and membership and opens a session.
func (a *Admins) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, apperr.ValidationError{Field: "email", Message: "email and password are required"}
	}

	admin, err := a.byEmail(ctx, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if admin.Role != questboard.RoleAdmin {
		a.logger.Warn("sign-in by non-admin account", "email", email)
		return Session{}, apperr.ForbiddenError{Reason: "account is not an admin"}
	}

	sess := Session{
		ID:        docstore.NewID(),
		Admin:     admin,
		ExpiresAt: a.now().UTC().Add(a.ttl),
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, admin_id, expires_at) VALUES (?, ?, ?)`,
		sess.ID, admin.ID, sess.ExpiresAt.Format(sessionTimeLayout),
	)
	if err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

func (a *Admins) SignOut(ctx context.Context, sessionID string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

// Current resolves a session id to its admin. Expired sessions are
// removed and reported as ErrNoSession.
func (a *Admins) Current(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, ErrNoSession
	}

	var adminID, expires string
	err := a.db.QueryRowContext(ctx,
		`SELECT admin_id, expires_at FROM admin_sessions WHERE id = ?`, sessionID,
	).Scan(&adminID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}

	expiresAt, err := time.Parse(sessionTimeLayout, expires)
	if err != nil {
		return Session{}, fmt.Errorf("parsing session expiry: %w", err)
	}
	if !a.now().Before(expiresAt) {
		if err := a.SignOut(ctx, sessionID); err != nil {
			a.logger.Warn("removing expired session", "error", err)
		}
		return Session{}, ErrNoSession
	}

	var admin questboard.Admin
	err = a.docs.Get(ctx, questboard.CollAdminUsers, adminID, &admin)
	if errors.Is(err, docstore.ErrNotFound) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}
	if admin.Role != questboard.RoleAdmin {
		return Session{}, ErrNoSession
	}
	return Session{ID: sessionID, Admin: admin, ExpiresAt: expiresAt}, nil
}

func (a *Admins) byEmail(ctx context.Context, email string) (questboard.Admin, error) {
	docs, err := a.docs.List(ctx, questboard.CollAdminUsers)
	if err != nil {
		return questboard.Admin{}, err
	}
	admins, err := docstore.DecodeAll[questboard.Admin](docs)
	if err != nil {
		return questboard.Admin{}, err
	}
	for _, adm := range admins {
		if normalizeEmail(adm.Email) == email {
			return adm, nil
		}
	}
	return questboard.Admin{}, docstore.ErrNotFound
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
