package shop

import (
	"context"
	"errors"
	"strings"

	"github.com/matthieukhl/luxe/internal/models"
)

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type SignupInput struct {
	Username        string
	Email           string
	FullName        string
	Password        string
	ConfirmPassword string
}

// ProfileInput updates the caller's own profile. Nil fields are unchanged.
type ProfileInput struct {
	Email    *string
	FullName *string
}

// UserPatch is an administrative edit of a user. Nil fields are unchanged.
type UserPatch struct {
	Email     *string
	FullName  *string
	IsStaff   *bool
	IsActive  *bool
	BanReason *string
}

// Accounts manages users, credentials and administrative account state.
type Accounts struct {
	store  Store
	hasher PasswordHasher
}

func NewAccounts(store Store, hasher PasswordHasher) *Accounts {
	return &Accounts{store: store, hasher: hasher}
}

func (a *Accounts) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if in.Password != in.ConfirmPassword {
		return nil, newError(ErrInvalidInput, "Passwords do not match.")
	}
	return a.createUser(ctx, in.Username, in.Email, in.FullName, in.Password, false)
}

// CreateAdmin creates a staff account.
func (a *Accounts) CreateAdmin(ctx context.Context, username, email, fullName, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, newError(ErrInvalidInput, "Email is required.")
	}
	return a.createUser(ctx, username, email, fullName, password, true)
}

func (a *Accounts) createUser(ctx context.Context, username, email, fullName, password string, staff bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, newError(ErrInvalidInput, "Username is required.")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := a.store.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, Conflict("A user with that username already exists.")
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		IsStaff:      staff,
		IsActive:     true,
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return newError(ErrInvalidInput, "This password is too short. It must contain at least 8 characters.")
	}
	if strings.Trim(password, "0123456789") == "" {
		return newError(ErrInvalidInput, "This password is entirely numeric.")
	}
	return nil
}

// Authenticate checks customer credentials. Banned users get the ban reason.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, newError(ErrInvalidInput, "Username and password are required.")
	}

	u, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrUnauthorized, "Invalid username or password.")
		}
		return nil, err
	}
	if !a.hasher.Compare(u.PasswordHash, password) {
		return nil, newError(ErrUnauthorized, "Invalid username or password.")
	}
	if !u.IsActive {
		return nil, banned(u)
	}
	return u, nil
}

// AuthenticateStaff checks credentials for the admin panel.
func (a *Accounts) AuthenticateStaff(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, newError(ErrInvalidInput, "Username and password are required.")
	}

	u, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrUnauthorized, "Invalid credentials.")
		}
		return nil, err
	}
	if !a.hasher.Compare(u.PasswordHash, password) {
		return nil, newError(ErrUnauthorized, "Invalid credentials.")
	}
	if !u.IsActive {
		return nil, newError(ErrAccountDeactivated, "This account has been deactivated.")
	}
	if !u.IsStaff {
		return nil, newError(ErrForbidden, "You do not have admin access.")
	}
	return u, nil
}

// Active loads the user behind an authenticated request and rejects users
// that were deleted or banned after their token was issued.
func (a *Accounts) Active(ctx context.Context, id uint) (*models.User, error) {
	u, err := a.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrUnauthorized, "User no longer exists.")
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, banned(u)
	}
	return u, nil
}

func banned(u *models.User) error {
	if reason := strings.TrimSpace(u.BanReason); reason != "" {
		return newError(ErrAccountBanned, "Your account has been banned. Reason: %s", reason)
	}
	return newError(ErrAccountBanned, "Your account has been banned. Please contact support.")
}

func (a *Accounts) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*models.User, error) {
	u, err := a.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.FullName != nil {
		u.FullName = strings.TrimSpace(*in.FullName)
	}
	if err := a.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns users newest first, optionally filtered by a
// case-insensitive match on username, email or full name.
func (a *Accounts) ListUsers(ctx context.Context, search string) ([]models.User, error) {
	return a.store.ListUsers(ctx, strings.TrimSpace(search))
}

func (a *Accounts) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return a.store.GetUser(ctx, id)
}

func (a *Accounts) UpdateUser(ctx context.Context, id uint, p UserPatch) (*models.User, error) {
	u, err := a.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Email != nil {
		u.Email = strings.TrimSpace(*p.Email)
	}
	if p.FullName != nil {
		u.FullName = strings.TrimSpace(*p.FullName)
	}
	if p.IsStaff != nil {
		u.IsStaff = *p.IsStaff
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.BanReason != nil {
		u.BanReason = strings.TrimSpace(*p.BanReason)
	}
	if u.IsActive {
		u.BanReason = ""
	}
	if err := a.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (a *Accounts) DeleteUser(ctx context.Context, id uint) error {
	return a.store.DeleteUser(ctx, id)
}

// ToggleStaff flips the staff flag of another user.
func (a *Accounts) ToggleStaff(ctx context.Context, actorID, id uint) (*models.User, error) {
	if actorID == id {
		return nil, newError(ErrInvalidInput, "You cannot modify your own staff status.")
	}
	u, err := a.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsStaff = !u.IsStaff
	if err := a.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ToggleBan bans an active user with a mandatory reason, or unbans a banned
// user and clears the reason.
func (a *Accounts) ToggleBan(ctx context.Context, actorID, id uint, reason string) (*models.User, error) {
	if actorID == id {
		return nil, newError(ErrInvalidInput, "You cannot ban yourself.")
	}
	u, err := a.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.IsActive {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, newError(ErrInvalidInput, "A ban reason is required.")
		}
		u.IsActive = false
		u.BanReason = reason
	} else {
		u.IsActive = true
		u.BanReason = ""
	}

	if err := a.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
