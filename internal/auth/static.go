package auth

// StaticProvider serves users declared directly in the config file.
// It backs small installs that have no users table at all.
type StaticProvider struct {
	users []User
}

// NewStaticProvider creates a provider over a fixed user list.
func NewStaticProvider(users []User) *StaticProvider {
	return &StaticProvider{users: users}
}

// FetchByName resolves a user by username.
func (p *StaticProvider) FetchByName(name string) (User, bool) {
	for _, u := range p.users {
		if u.Username == name {
			return u, true
		}
	}
	return User{}, false
}

// FetchByID resolves a user by numeric ID.
func (p *StaticProvider) FetchByID(id int64) (User, bool) {
	for _, u := range p.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// VerifyPassword compares against the configured password.
func (p *StaticProvider) VerifyPassword(user User, password string) bool {
	return user.Password != "" && user.Password == password
}
