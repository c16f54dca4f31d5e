package store

import (
	"github.com/asaphhq/asaph/internal/types"
)

// CreateAccount registers a new account and returns its id paired with
// a freshly generated access token. Registering an email that is
// already taken fails with ErrConflict.
func (s *Store) CreateAccount(email, password, name string) (types.Credentials, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return types.Credentials{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range s.accounts {
		if acct.Email == email {
			return types.Credentials{}, ErrConflict
		}
	}

	id, err := s.newAccountId()
	if err != nil {
		return types.Credentials{}, err
	}

	token := newToken()
	s.accounts[id] = &types.Account{
		Id:           id,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Token:        token,
		SavedRooms:   make(map[string]string),
	}
	s.markDirty()

	s.log.Printf("created account %q", id)
	return types.Credentials{Uid: id, Token: token}, nil
}

// Login verifies the password for the account registered under email
// and rotates its access token. Any previously issued token stops
// verifying from this point on.
func (s *Store) Login(email, password string) (types.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range s.accounts {
		if acct.Email != email {
			continue
		}
		if !verifyPassword(acct.PasswordHash, password) {
			return types.Credentials{}, ErrUnauthorized
		}

		acct.Token = newToken()
		s.markDirty()
		return types.Credentials{Uid: acct.Id, Token: acct.Token}, nil
	}

	return types.Credentials{}, ErrNotFound
}

// SignOut clears the account's access token.
func (s *Store) SignOut(id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.verifyAccountLocked(id, token)
	if err != nil {
		return err
	}

	acct.Token = ""
	s.markDirty()
	return nil
}

// GetProfile returns the account's profile, including the id of the
// room it is currently present in.
func (s *Store) GetProfile(id, token string) (types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.verifyAccountLocked(id, token)
	if err != nil {
		return types.Profile{}, err
	}
	return acct.Profile(), nil
}

// SetProfile applies patch to the account. Only "email", "name" and
// "password" may be patched; any other key fails with ErrForbidden and
// leaves the account untouched. A patched password is re-hashed, and a
// patched email must not collide with another account.
func (s *Store) SetProfile(id, token string, patch map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.verifyAccountLocked(id, token)
	if err != nil {
		return err
	}

	for key := range patch {
		switch key {
		case "email", "name", "password":
		default:
			return ErrForbidden
		}
	}

	if email, ok := patch["email"]; ok && email != acct.Email {
		for _, other := range s.accounts {
			if other.Email == email {
				return ErrConflict
			}
		}
	}

	if passwd, ok := patch["password"]; ok {
		hash, err := hashPassword(passwd)
		if err != nil {
			return err
		}
		acct.PasswordHash = hash
	}
	if email, ok := patch["email"]; ok {
		acct.Email = email
	}
	if name, ok := patch["name"]; ok {
		acct.Name = name
	}

	s.markDirty()
	return nil
}
