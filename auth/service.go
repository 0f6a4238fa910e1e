package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrebq/backoffice/store"
)

type (
	// CredentialStore is the part of the store used to authenticate and
	// register users.
	CredentialStore interface {
		Credentials(ctx context.Context, username string) (store.User, error)
		UsernameExists(ctx context.Context, username string) (bool, error)
		RegisterUserAtomic(ctx context.Context, username, passwordHash, role string) (int64, error)
	}

	LoginResult struct {
		Token  string
		Claims *Claims
	}

	Service struct {
		users    CredentialStore
		hasher   Hasher
		tokens   *Tokens
		denylist Denylist

		// decoy is verified against when the user does not exist
		decoy string
	}
)

const (
	decoyPassword = "backoffice/decoy"
)

// NewService returns the auth service. tokens and denylist may be nil when
// the service is only used to register users, in which case no decoy digest
// is computed either.
func NewService(users CredentialStore, hasher Hasher, tokens *Tokens, denylist Denylist) *Service {
	s := &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		denylist: denylist,
	}
	if tokens != nil {
		s.decoy, _ = hasher.Hash(decoyPassword)
	}
	return s
}

func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Login checks the credentials and issues a token listing every role of
// the user. Unknown users and wrong passwords fail with the same error.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{}, ValidationError{Msg: "Username and password are required"}
	}
	u, err := s.users.Credentials(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		// keep the response time close to the one of a wrong password
		s.hasher.Verify(password, s.decoy)
		return LoginResult{}, ErrInvalidCredentials
	} else if err != nil {
		return LoginResult{}, fmt.Errorf("unable to load credentials, cause %w", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, claims, err := s.tokens.Issue(Identity{Username: u.Username, Roles: u.Roles, UserID: u.ID})
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, Claims: claims}, nil
}

// Register creates a user holding exactly one role and returns its id.
func (s *Service) Register(ctx context.Context, username, password, role string) (int64, error) {
	if username == "" || password == "" || role == "" {
		return 0, ValidationError{Msg: "All fields are required"}
	}
	exists, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("unable to check username, cause %w", err)
	} else if exists {
		return 0, ErrUsernameTaken
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return 0, err
	}
	id, err := s.users.RegisterUserAtomic(ctx, username, digest, role)
	if errors.Is(err, store.ErrDuplicate) {
		return 0, ErrUsernameTaken
	} else if err != nil {
		return 0, fmt.Errorf("unable to register user, cause %w", err)
	}
	return id, nil
}

// Verify returns the claims of a valid token that was not logged out.
func (s *Service) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.denylist.Revoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	} else if revoked {
		return nil, fmt.Errorf("%w: token %v was revoked", ErrInvalidToken, claims.ID)
	}
	return claims, nil
}

// Logout revokes token until it expires. Tokens that are already invalid
// are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.Verify(ctx, token)
	if errors.Is(err, ErrNoToken) || errors.Is(err, ErrInvalidToken) {
		return nil
	} else if err != nil {
		return err
	}
	return s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
