// Package config handles daemon configuration file management and the
// policy lookups (privileges, ident, players) the rest of the daemon
// consults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jukeboxd/internal/auth"
)

// DefaultPrivilegeKey is the privileges entry used when a command has no
// entry of its own.
const DefaultPrivilegeKey = "*default*"

// Config represents the daemon configuration
type Config struct {
	// Listen is the TCP address the daemon accepts clients on
	Listen string `json:"listen"`

	// DatabaseURL selects and locates the record store,
	// e.g. sqlite:///var/lib/jukeboxd/jukebox.db or postgres://...
	DatabaseURL string `json:"databaseUrl"`

	// AuthBackends is the ordered list of user database backends,
	// tried first to last ("sql", "static")
	AuthBackends []string `json:"authBackends"`

	// Users are the entries served by the static auth backend
	Users []StaticUser `json:"users"`

	// Privileges maps a command name to the minimum privilege level
	// ("anon", "user", "admin"). The "*default*" key covers the rest.
	Privileges map[string]string `json:"privileges"`

	// AllowAnonymousStatus permits STATUS before authentication
	AllowAnonymousStatus bool `json:"allowAnonymousStatus"`

	// AllowIdent permits RFC1413 ident authentication
	AllowIdent bool `json:"allowIdent"`

	// AllowIdentFrom restricts ident to these client hosts; empty means any
	AllowIdentFrom []string `json:"allowIdentFrom"`

	// Players maps a file extension to the decoder command line,
	// e.g. "mp3" -> "/usr/bin/mpg123 -q"
	Players map[string]string `json:"players"`

	// Log settings for mutation auditing
	Log LogConfig `json:"log"`

	// Mixer settings for the volume manager
	Mixer MixerConfig `json:"mixer"`
}

// StaticUser is one user entry for the static auth backend
type StaticUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Level    string `json:"level"`
}

// LogConfig controls which mutations are audit-logged with track details
type LogConfig struct {
	// Enqueue - log enqueued tracks/albums with artist and title
	Enqueue bool `json:"enqueue"`

	// Remove - log removed queue items with artist and title
	Remove bool `json:"remove"`
}

// MixerConfig locates the external mixer commands. Both empty means no
// volume manager is available.
type MixerConfig struct {
	// GetCommand prints the current volume (0-100) on stdout
	GetCommand string `json:"getCommand"`

	// SetCommand sets the volume; the level is appended as an argument
	SetCommand string `json:"setCommand"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Listen:       ":4444",
		DatabaseURL:  "sqlite://jukebox.db",
		AuthBackends: []string{"sql"},
		Privileges: map[string]string{
			DefaultPrivilegeKey: "user",
			"lock":              "admin",
			"unlock":            "admin",
			"clear":             "admin",
			"random":            "admin",
		},
		Players: map[string]string{},
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	configPath string
	config     *Config
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk
func (m *Manager) Load() error {
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		// Create default config
		m.config = DefaultConfig()
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults so absent keys keep sane values
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.config = config
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	if dir := filepath.Dir(m.configPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path
func (m *Manager) GetPath() string {
	return m.configPath
}

// CheckRight reports whether a user at the given level may run the
// command. It looks the command up in the privileges map, falling back
// to the default key; a missing default requires admin.
func (c *Config) CheckRight(cmd string, level auth.Level) bool {
	name, ok := c.Privileges[cmd]
	if !ok {
		name, ok = c.Privileges[DefaultPrivilegeKey]
		if !ok {
			name = "admin"
		}
	}
	return auth.ParseLevel(name) <= level
}

// IsAnonymousStatusAllowed reports whether unauthenticated clients may
// request the player status.
func (c *Config) IsAnonymousStatusAllowed() bool {
	return c.AllowAnonymousStatus
}

// IsIdentAllowed reports whether ident authentication is enabled at all.
func (c *Config) IsIdentAllowed() bool {
	return c.AllowIdent
}

// IdentAllowedFrom reports whether ident authentication is allowed for a
// client at the given host. An empty allow list permits every host.
func (c *Config) IdentAllowedFrom(host string) bool {
	if len(c.AllowIdentFrom) == 0 {
		return true
	}
	for _, h := range c.AllowIdentFrom {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// PlayerFor looks up the decoder command line for a file extension.
func (c *Config) PlayerFor(ext string) (string, bool) {
	cmd, ok := c.Players[strings.ToLower(ext)]
	return cmd, ok
}

// StaticAuthUsers converts the configured user entries for the static
// auth backend.
func (c *Config) StaticAuthUsers() []auth.User {
	users := make([]auth.User, 0, len(c.Users))
	for _, u := range c.Users {
		users = append(users, auth.User{
			ID:       u.ID,
			Username: u.Username,
			Password: u.Password,
			Level:    auth.ParseLevel(u.Level),
		})
	}
	return users
}
