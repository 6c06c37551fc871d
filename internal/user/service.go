package user

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"presensi/internal/apperr"
	"presensi/internal/auth"
	"presensi/internal/model"
	"presensi/internal/store"
)

// Hasher hashes and verifies plaintext secrets.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uint, username, role string) (auth.Token, error)
}

var (
	errUserNotFound   = apperr.NotFound("user not found")
	errUsernameTaken  = apperr.Conflict("username already taken")
	errBadCredentials = apperr.Unauthorized("invalid username or password")
)

// RegisterInput carries the fields of a new user. Role defaults to siswa.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Role        string
	ClassGroup  *string
	Position    *string
}

// UpdateInput carries a partial update; nil fields keep their stored value.
type UpdateInput struct {
	Username    *string
	Password    *string
	DisplayName *string
	Role        *string
	ClassGroup  *string
	Position    *string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.User
}

// Service owns user creation, lookup, update and login.
type Service struct {
	repo   Repository
	hasher Hasher
	tokens TokenIssuer

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, hasher Hasher, tokens TokenIssuer) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens}
}

// Register creates a user after checking the username is free.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Username == "" || in.Password == "" || in.DisplayName == "" {
		return model.User{}, apperr.Invalid("username, password and nama_lengkap are required")
	}
	if in.Role == "" {
		in.Role = model.RoleStudent
	}
	if !validRole(in.Role) {
		return model.User{}, apperr.Invalid("unknown role " + in.Role)
	}

	existing, err := s.repo.FindByUsername(ctx, in.Username)
	if err != nil {
		return model.User{}, fmt.Errorf("find user by username: %w", err)
	}
	if existing != nil {
		return model.User{}, errUsernameTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Username:     in.Username,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Role:         in.Role,
		ClassGroup:   emptyToNil(in.ClassGroup),
		Position:     emptyToNil(in.Position),
	}
	if err := s.repo.Create(ctx, &u); err != nil {
		if store.IsUniqueViolation(err) {
			return model.User{}, errUsernameTaken.Wrap(err)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// FindAll lists users, newest first.
func (s *Service) FindAll(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// FindOne returns the user with id or NotFound.
func (s *Service) FindOne(ctx context.Context, id uint) (model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return model.User{}, errUserNotFound
	}
	return *u, nil
}

// Update applies a partial update. Renaming to a username held by another user is a Conflict.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (model.User, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	if current == nil {
		return model.User{}, errUserNotFound
	}

	fields := map[string]any{}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return model.User{}, apperr.Invalid("username must not be empty")
		}
		if name != current.Username {
			other, err := s.repo.FindByUsername(ctx, name)
			if err != nil {
				return model.User{}, fmt.Errorf("find user by username: %w", err)
			}
			if other != nil && other.ID != id {
				return model.User{}, errUsernameTaken
			}
			fields["username"] = name
		}
	}
	if in.Password != nil {
		if *in.Password == "" {
			return model.User{}, apperr.Invalid("password must not be empty")
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return model.User{}, err
		}
		fields["password"] = hash
	}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return model.User{}, apperr.Invalid("nama_lengkap must not be empty")
		}
		fields["nama_lengkap"] = name
	}
	if in.Role != nil {
		if !validRole(*in.Role) {
			return model.User{}, apperr.Invalid("unknown role " + *in.Role)
		}
		fields["role"] = *in.Role
	}
	if in.ClassGroup != nil {
		fields["kelas"] = emptyToNil(in.ClassGroup)
	}
	if in.Position != nil {
		fields["jabatan"] = emptyToNil(in.Position)
	}

	if len(fields) == 0 {
		return *current, nil
	}
	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.User{}, errUsernameTaken.Wrap(err)
		}
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	if updated == nil {
		return model.User{}, errUserNotFound
	}
	return *updated, nil
}

// Login verifies credentials and issues a token. Unknown usernames and wrong
// passwords fail with the same error.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return LoginResult{}, fmt.Errorf("find user by username: %w", err)
	}
	if u == nil {
		// Same hashing work as a wrong password.
		s.hasher.Verify(password, s.unknownUserHash())
		return LoginResult{}, errBadCredentials
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return LoginResult{}, errBadCredentials
	}
	tok, err := s.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Token: tok.AccessToken, ExpiresAt: tok.ExpiresAt, User: *u}, nil
}

func (s *Service) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("presensi-unknown-user")
		if err != nil {
			log.Printf("login: dummy hash failed: %v", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func validRole(role string) bool {
	switch role {
	case model.RoleStudent, model.RoleTeacher, model.RoleAdmin:
		return true
	}
	return false
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
