// Package auth handles user lookup and password verification.
package auth

import "strings"

// Level is a user privilege level.
type Level int

const (
	LevelAnon Level = iota
	LevelUser
	LevelAdmin
)

// ParseLevel maps a privilege name from the config file to a Level.
// Unknown names map to LevelAdmin so a typo never grants access.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "anon", "anonymous":
		return LevelAnon
	case "user":
		return LevelUser
	case "admin":
		return LevelAdmin
	default:
		return LevelAdmin
	}
}

// User holds the identity of an authenticated (or resolving) user.
type User struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Password string `db:"password"`
	Level    Level  `db:"status"`
}

// Provider is a single user database backend.
// All lookups report "not found" as ok=false, never as an error.
type Provider interface {
	// FetchByName resolves a user by username.
	FetchByName(name string) (User, bool)

	// FetchByID resolves a user by numeric ID.
	FetchByID(id int64) (User, bool)

	// VerifyPassword checks the password for a previously fetched user.
	VerifyPassword(user User, password string) bool
}

// Chain is an ordered list of providers. Each operation tries the
// providers strictly in order and stops at the first that succeeds;
// results are never merged across providers.
type Chain []Provider

// FetchByName resolves a user by name via the first matching provider.
func (c Chain) FetchByName(name string) (User, bool) {
	for _, p := range c {
		if u, ok := p.FetchByName(name); ok {
			return u, true
		}
	}
	return User{}, false
}

// FetchByID resolves a user by ID via the first matching provider.
func (c Chain) FetchByID(id int64) (User, bool) {
	for _, p := range c {
		if u, ok := p.FetchByID(id); ok {
			return u, true
		}
	}
	return User{}, false
}

// VerifyPassword checks the password against each provider in order.
func (c Chain) VerifyPassword(user User, password string) bool {
	for _, p := range c {
		if p.VerifyPassword(user, password) {
			return true
		}
	}
	return false
}
