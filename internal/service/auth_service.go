package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gcpanel/internal/auth"
	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/metrics"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
)

const (
	minPasswordLength     = 8
	generatedPasswordSize = 18
)

// LoginResult is returned by a successful login or refresh.
type LoginResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *model.User `json:"user"`
}

// RegisterInput carries a self-registration.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AdminBootstrap names the first administrator. An empty Password means
// one is generated.
type AdminBootstrap struct {
	Username string
	Email    string
	Password string
}

// BootstrapResult reports what InitializeAuth did.
type BootstrapResult struct {
	AdminCreated      bool
	GeneratedPassword string
}

// AuthOptions tunes token lifetimes.
type AuthOptions struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthService handles authentication operations.
type AuthService interface {
	AuthenticateUser(ctx context.Context, login, password string) (*LoginResult, error)
	GetUserByToken(ctx context.Context, token string) (*model.User, error)
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	ChangePassword(ctx context.Context, userID uint, current, next string) error
	RefreshToken(ctx context.Context, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	InitializeAuth(ctx context.Context, admin AdminBootstrap) (*BootstrapResult, error)
}

type authService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	principals *auth.PrincipalCache
	audit      AuditService
	opts       AuthOptions
	now        func() time.Time
	log        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	principals *auth.PrincipalCache,
	audit AuditService,
	opts AuthOptions,
) AuthService {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = auth.AccessTokenExpiry
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = auth.RefreshTokenExpiry
	}
	return &authService{
		users:      users,
		roles:      roles,
		jwtService: jwtService,
		tokenStore: tokenStore,
		principals: principals,
		audit:      audit,
		opts:       opts,
		now:        time.Now,
		log:        slog.Default().With(slog.String("component", "auth")),
	}
}

// AuthenticateUser checks credentials and issues a token pair.
// Every rejection is ErrInvalidCredentials; storage faults pass through.
func (s *authService) AuthenticateUser(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		metrics.ObserveLogin("rejected")
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, login)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			metrics.ObserveLogin("unknown_user")
			return nil, apperrors.ErrInvalidCredentials
		}
		metrics.ObserveLogin(metrics.ResultError)
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !user.CanLogin() {
		metrics.ObserveLogin("inactive")
		return nil, apperrors.ErrInvalidCredentials
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		if err := s.users.RecordFailedLogin(ctx, user.ID); err != nil {
			s.log.Warn("record failed login", slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
		}
		metrics.ObserveLogin("bad_password")
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LastLoginAt = &now

	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	metrics.ObserveLogin(metrics.ResultOK)
	s.audit.Record(ctx, user, ActionLogin, "users", user.ID, "")
	return result, nil
}

func (s *authService) issue(ctx context.Context, user *model.User) (*LoginResult, error) {
	id := auth.Identity{UserID: user.ID, Username: user.Username, Roles: user.RoleNames()}

	accessToken, err := s.jwtService.CreateAccessTokenFor(id, s.opts.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.CreateRefreshToken(id, s.opts.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, user.Username, s.opts.RefreshTTL); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.opts.AccessTTL.Seconds()),
		User:         user,
	}, nil
}

// GetUserByToken resolves an access token to its active user.
func (s *authService) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.jwtService.ParseTokenOfType(token, auth.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	revoked, err := s.tokenStore.IsAccessTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token: %w", err)
	}
	if revoked {
		s.principals.Remove(claims.ID)
		return nil, fmt.Errorf("%w: token revoked", apperrors.ErrInvalidToken)
	}

	if user, ok := s.principals.Get(claims.ID); ok {
		return user, nil
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user, err := s.users.WithRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d not found", apperrors.ErrInvalidToken, userID)
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, fmt.Errorf("%w: user %d cannot log in", apperrors.ErrInvalidToken, userID)
	}

	s.principals.Add(claims.ID, user)
	return user, nil
}

// Register creates an active user with the viewer role.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" {
		return nil, apperrors.Validation("username and email are required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperrors.Validation("password must be at least %d characters", minPasswordLength)
	}

	for _, login := range []string{in.Username, in.Email} {
		_, err := s.users.GetByUsernameOrEmail(ctx, login)
		if err == nil {
			return nil, fmt.Errorf("%w: user %q already exists", apperrors.ErrConflict, login)
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("check user existence: %w", err)
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Status:       model.UserStatusActive,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if _, err := s.roles.Ensure(ctx, model.RoleViewer, roleDescription(model.RoleViewer)); err != nil {
		return nil, err
	}
	if err := s.users.AssignRole(ctx, user.ID, model.RoleViewer); err != nil {
		return nil, fmt.Errorf("assign default role: %w", err)
	}

	created, err := s.users.WithRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, created, ActionRegister, "users", created.ID, created.Username)
	return created, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *authService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.users.WithRoles(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(current, user.PasswordHash) {
		return apperrors.ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return apperrors.Validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, userID, hash); err != nil {
		return err
	}
	s.audit.Record(ctx, user, ActionPassword, "users", userID, "")
	return nil
}

// RefreshToken rotates a refresh token into a new token pair. The old token
// is consumed before anything else, so it is spent even when rotation fails.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.jwtService.ParseTokenOfType(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	storedUserID, _, err := s.tokenStore.ConsumeRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token unknown or expired", apperrors.ErrInvalidToken)
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	if storedUserID != userID {
		return nil, fmt.Errorf("%w: refresh token subject mismatch", apperrors.ErrInvalidToken)
	}

	user, err := s.users.WithRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, apperrors.ErrInvalidToken
	}

	return s.issue(ctx, user)
}

// Logout revokes the access token until it expires and drops the refresh token.
func (s *authService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.jwtService.ParseTokenOfType(accessToken, auth.TokenTypeAccess)
	if err != nil {
		return err
	}
	if err := s.tokenStore.BlacklistAccessToken(ctx, claims.ID, claims.TTL(s.now())); err != nil {
		return fmt.Errorf("blacklist access token: %w", err)
	}
	s.principals.Remove(claims.ID)

	if refreshToken != "" {
		if rc, err := s.jwtService.ParseTokenOfType(refreshToken, auth.TokenTypeRefresh); err == nil {
			if err := s.tokenStore.DeleteRefreshToken(ctx, rc.ID); err != nil {
				return fmt.Errorf("revoke refresh token: %w", err)
			}
		}
	}

	if userID, err := claims.UserID(); err == nil {
		s.audit.Record(ctx, &model.User{Base: model.Base{ID: userID}}, ActionLogout, "users", userID, "")
	}
	return nil
}

// InitializeAuth makes sure the bootstrap roles and the first admin exist.
// Running it again changes nothing.
func (s *authService) InitializeAuth(ctx context.Context, admin AdminBootstrap) (*BootstrapResult, error) {
	for _, role := range model.DefaultRoles {
		if _, err := s.roles.Ensure(ctx, role.Name, role.Description); err != nil {
			return nil, fmt.Errorf("ensure role %s: %w", role.Name, err)
		}
	}

	result := &BootstrapResult{}
	if admin.Username == "" {
		return result, nil
	}

	_, err := s.users.GetByUsername(ctx, admin.Username)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	password := admin.Password
	if password == "" {
		if password, err = auth.GeneratePassword(generatedPasswordSize); err != nil {
			return nil, err
		}
		result.GeneratedPassword = password
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	email := admin.Email
	if email == "" {
		email = admin.Username + "@gcpanel.local"
	}
	user := &model.User{
		Username:     admin.Username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		Status:       model.UserStatusActive,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.log.Warn("admin account exists but is deactivated", slog.String("username", admin.Username))
			return &BootstrapResult{}, nil
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	if err := s.users.AssignRole(ctx, user.ID, model.RoleAdmin); err != nil {
		return nil, fmt.Errorf("assign admin role: %w", err)
	}

	result.AdminCreated = true
	if result.GeneratedPassword != "" {
		s.log.Warn("created admin account with a generated password; change it after first login",
			slog.String("username", admin.Username), slog.String("password", result.GeneratedPassword))
	} else {
		s.log.Info("created admin account", slog.String("username", admin.Username))
	}
	s.audit.Record(ctx, nil, ActionCreate, "users", user.ID, "bootstrap admin")
	return result, nil
}

func roleDescription(name string) string {
	for _, r := range model.DefaultRoles {
		if r.Name == name {
			return r.Description
		}
	}
	return ""
}
