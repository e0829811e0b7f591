// Package auth checks credentials against the users table and keeps the
// live session between CLI invocations.
package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/jvs-project/regis/internal/audit"
	"github.com/jvs-project/regis/internal/hasher"
	"github.com/jvs-project/regis/internal/record"
	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/model"
)

// Options tunes the authenticator.
type Options struct {
	// AuditFailedLogins records "login failed" with the attempted username.
	AuditFailedLogins bool
}

// Authenticator verifies credentials and audits logins and logouts.
type Authenticator struct {
	store  *record.Store
	hasher hasher.Hasher
	log    *audit.Log
	opts   Options
	now    func() time.Time
}

// New returns an authenticator over the users of store.
func New(store *record.Store, h hasher.Hasher, log *audit.Log, opts Options) *Authenticator {
	return &Authenticator{store: store, hasher: h, log: log, opts: opts, now: time.Now}
}

// Login returns a session for the first user whose username matches exactly
// and whose stored digest verifies secret.
func (a *Authenticator) Login(username, secret string) (model.Session, error) {
	users, err := a.store.Unredacted(schema.User)
	if err != nil {
		return model.Session{}, err
	}
	for _, u := range users {
		if u.Values[schema.UserUsername-1] != username {
			continue
		}
		if !a.hasher.Verify(secret, u.Values[schema.UserPassword-1]) {
			continue
		}
		role, err := model.ParseRole(u.Values[schema.UserRole-1])
		if err != nil {
			break
		}
		a.log.Note(username, model.ActionLoginSucceeded)
		return model.Session{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Username:  username,
			Role:      role,
			StartedAt: a.now(),
		}, nil
	}

	if a.opts.AuditFailedLogins {
		a.log.Note(username, model.ActionLoginFailed)
	}
	return model.Session{}, errclass.ErrAuthFailure.WithMessage("invalid username or password")
}

// Logout ends session and audits it.
func (a *Authenticator) Logout(session model.Session) {
	a.log.Note(session.Username, model.ActionLogout)
}

// Resolve checks session against the users table and returns it with the
// account's current role. The first user with the exact username decides; a
// session whose account is gone or carries no valid role is refused.
func (a *Authenticator) Resolve(session model.Session) (model.Session, error) {
	users, err := a.store.Unredacted(schema.User)
	if err != nil {
		return model.Session{}, err
	}
	for _, u := range users {
		if u.Values[schema.UserUsername-1] != session.Username {
			continue
		}
		role, err := model.ParseRole(u.Values[schema.UserRole-1])
		if err != nil {
			break
		}
		session.Role = role
		return session, nil
	}
	return model.Session{}, errclass.ErrNotLoggedIn.WithMessage("account no longer exists; run 'regis login'")
}
