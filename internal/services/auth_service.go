package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/models"
	pkgauth "github.com/BradenHooton/claimsdesk/pkg/auth"
	pkglogger "github.com/BradenHooton/claimsdesk/pkg/logger"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error)
}

// TokenRevocationRepository defines the interface for the session denylist
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time) error
}

// AuthSettings carries the credential-store knobs taken from config.
type AuthSettings struct {
	AdminRegistrationKey string
	ResetTokenExpiry     time.Duration
	FrontendURL          string
	BcryptCost           int
}

// AuthService handles registration, login and password recovery
type AuthService struct {
	repo        UserRepository
	revokeRepo  TokenRevocationRepository
	outbox      OutboxEnqueuer
	tm          *auth.TokenManager
	settings    AuthSettings
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewAuthService creates a new AuthService. revokeRepo may be nil when no
// denylist store is configured; logout then only clears cookies.
func NewAuthService(repo UserRepository, tm *auth.TokenManager, revokeRepo TokenRevocationRepository, outbox OutboxEnqueuer, settings AuthSettings, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	if settings.BcryptCost == 0 {
		settings.BcryptCost = pkgauth.BcryptCost
	}
	return &AuthService{
		repo:        repo,
		revokeRepo:  revokeRepo,
		outbox:      outbox,
		tm:          tm,
		settings:    settings,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	AdminKey string
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// validatePassword maps the length rules onto ValidationErrors.
func validatePassword(password string) error {
	if err := pkgauth.ValidatePassword(password); err != nil {
		if errors.Is(err, pkgauth.ErrPasswordTooLong) {
			return models.NewValidationError("Password must be at most %d characters long.", pkgauth.MaxPasswordLen)
		}
		return models.NewValidationError("Password must be at least %d characters long.", pkgauth.MinPasswordLen)
	}
	return nil
}

func hashPassword(password string, cost int) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}
	return pkgauth.HashPasswordWithCost(password, cost)
}

// Register creates a user. Admin registration requires the configured key.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := models.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" || in.Role == "" {
		return nil, models.NewValidationError("All fields are required.")
	}
	if !emailPattern.MatchString(email) {
		return nil, models.NewValidationError("Invalid email format.")
	}
	if in.Role != models.RoleUser && in.Role != models.RoleAdmin {
		return nil, models.NewValidationError("Role must be %s or %s.", models.RoleUser, models.RoleAdmin)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, models.NewConflictError("User already exists.")
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if in.Role == models.RoleAdmin && !s.validAdminKey(in.AdminKey) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "register_failed",
			Email:         email,
			FailureReason: "invalid_admin_key",
		})
		return nil, models.NewAuthorizationError("Invalid Admin registration key.")
	}

	passwordHash, err := hashPassword(in.Password, s.settings.BcryptCost)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, err
		}
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         in.Role,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewConflictError("User already exists.")
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID), slog.String("role", user.Role))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "register",
		UserID:    user.ID,
		Email:     user.Email,
		Success:   true,
	})

	batch := (&taskBatch{}).
		email(welcomeEmail(user)).
		profile(user).
		add(models.TaskMarketingContact, models.ContactPayload{Name: user.Name, Email: user.Email})
	enqueueAfterCommit(ctx, s.outbox, s.logger, batch, slog.String("user_id", user.ID))

	return user, nil
}

func (s *AuthService) validAdminKey(key string) bool {
	if s.settings.AdminRegistrationKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.settings.AdminRegistrationKey)) == 1
}

// Login verifies credentials and issues a session token
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*LoginResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required.")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				Email:         email,
				IPAddress:     ipAddress,
				FailureReason: "unknown_email",
			})
			return nil, models.NewNotFoundError("User not registered.")
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
		})
		return nil, models.NewAuthenticationError("Invalid email or password.")
	}

	token, expiresAt, err := s.tm.GenerateSessionToken(user)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login",
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	batch := (&taskBatch{}).profile(user).email(loginEmail(user, s.now()))
	enqueueAfterCommit(ctx, s.outbox, s.logger, batch, slog.String("user_id", user.ID))

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout denylists the session's token id until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *models.TokenClaims) error {
	if claims == nil {
		return models.NewAuthenticationError("Authentication required.")
	}

	if s.revokeRepo != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
			s.logger.Error("failed to revoke token", slog.String("user_id", claims.UserID), slog.Any("error", err))
			return models.ErrInternalServer
		}
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "logout",
		UserID:    claims.UserID,
		Success:   true,
	})
	return nil
}

// RequestPasswordReset stores a hashed one-hour token and emails the raw one.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return models.NewValidationError("Email is required.")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewNotFoundError("User not registered.")
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.settings.ResetTokenExpiry)
	if err := s.repo.SetResetToken(ctx, user.ID, pkgauth.HashToken(token), expiresAt); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	link := strings.TrimRight(s.settings.FrontendURL, "/") + "/reset-password/" + token
	batch := (&taskBatch{}).email(resetEmail(user, link))
	if batch.err == nil {
		batch.err = s.outbox.Enqueue(ctx, batch.tasks...)
	}
	if batch.err != nil {
		s.logger.Error("failed to enqueue reset email", slog.String("user_id", user.ID), slog.Any("error", batch.err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, nil)
	return nil
}

// ResetPassword consumes a reset token. A token works once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return models.NewAuthenticationError("Invalid or expired reset token.")
	}

	passwordHash, err := hashPassword(newPassword, s.settings.BcryptCost)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return err
		}
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	user, err := s.repo.ConsumeResetToken(ctx, pkgauth.HashToken(token), passwordHash, s.now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogPasswordChange("", "reset_token", false)
			return models.NewAuthenticationError("Invalid or expired reset token.")
		}
		s.logger.Error("failed to consume reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogPasswordChange(user.ID, "reset_token", true)
	return nil
}

// BootstrapAdmin creates an Admin with the given credentials unless the email
// is already registered. It reports whether a user was created.
func (s *AuthService) BootstrapAdmin(ctx context.Context, email, password, name string) (bool, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}

	if name == "" {
		name = "Administrator"
	}
	passwordHash, err := hashPassword(password, s.settings.BcryptCost)
	if err != nil {
		return false, err
	}

	user, err := s.repo.Create(ctx, &models.User{Email: email, Name: name, PasswordHash: passwordHash, Role: models.RoleAdmin})
	if err != nil {
		return false, err
	}

	s.auditLogger.LogAccountAction("admin_bootstrapped", user.ID, nil)
	return true, nil
}
