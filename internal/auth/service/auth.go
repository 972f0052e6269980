package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/conychips/auth/internal/auth/domain"
	"github.com/conychips/auth/internal/auth/rbac"
	"github.com/conychips/auth/internal/auth/store"
	"github.com/conychips/auth/pkg/cryptox"
	"github.com/conychips/auth/pkg/devicex"
	"github.com/conychips/auth/pkg/idx"
	"github.com/conychips/auth/pkg/jwtx"
	"github.com/conychips/auth/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultResetTTL is how long a password reset token stays usable.
	DefaultResetTTL = time.Hour

	// MinPasswordLength applies to registration and password reset.
	MinPasswordLength = 8

	deviceCachePrefix = "device:"
	logoutAllWorkers  = 8
)

// SessionCache is the part of the revocation store used for session and
// device bookkeeping. Every call is best effort.
type SessionCache interface {
	SaveSession(ctx context.Context, userID, token string, data any, ttl time.Duration) error
	DeleteSession(ctx context.Context, userID, token string) error
	DeleteAllSessions(ctx context.Context, userID string) (int, error)
	CacheSet(ctx context.Context, key string, value any, ttl time.Duration) error
}

// AuthService runs the login, logout, refresh, registration and password
// reset flows.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	Sessions SessionCache
	Notifier Notifier
	Logger   *slog.Logger

	// BcryptCost for new password hashes. Zero uses cryptox.DefaultPasswordCost.
	BcryptCost int

	// ResetTTL is the lifetime of a password reset token. Zero uses DefaultResetTTL.
	ResetTTL time.Duration

	// Fingerprint identifies the local machine when no app token is
	// presented. Defaults to devicex.Compute.
	Fingerprint func() string

	decoyOnce sync.Once
	decoyHash string
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	AppToken string `json:"app_token,omitempty"`
}

// UserView is the public shape of a user.
type UserView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Active      bool       `json:"active"`
	Roles       []string   `json:"roles"`
	Permissions []string   `json:"permisos"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newUserView(u domain.User) UserView {
	roles := rbac.WithDefault(u.Roles)
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Active:      u.Active,
		Roles:       roles,
		Permissions: rbac.Resolve(roles),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// SessionResult is returned by login and refresh.
type SessionResult struct {
	domain.TokenPair
	SessionID   string   `json:"session_id"`
	User        UserView `json:"user"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permisos"`
}

type RegisterDeviceInput struct {
	DeviceID string         `json:"dispositivo_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type DeviceResult struct {
	AppToken  string    `json:"app_token"`
	DeviceID  string    `json:"dispositivo_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *AuthService) log(ctx context.Context) *slog.Logger {
	return slogx.FromContextOr(ctx, s.Logger)
}

func (s *AuthService) now() time.Time { return s.Tokens.clock() }

func (s *AuthService) fingerprint() string {
	if s.Fingerprint != nil {
		return s.Fingerprint()
	}
	return devicex.Compute()
}

func (s *AuthService) resetTTL() time.Duration {
	if s.ResetTTL > 0 {
		return s.ResetTTL
	}
	return DefaultResetTTL
}

// internal logs err with its detail and hands the caller a generic 500.
func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	s.log(ctx).Error(op+" failed", "error", err)
	return ErrInternal
}

// decoyPasswordCheck runs one bcrypt compare at the configured cost so an
// unknown email takes as long as a wrong password.
func (s *AuthService) decoyPasswordCheck(ctx context.Context, password string) {
	s.decoyOnce.Do(func() {
		hash, err := cryptox.HashPassword(idx.New().String(), s.BcryptCost)
		if err != nil {
			s.log(ctx).Warn("decoy password hash failed", "error", err)
			return
		}
		s.decoyHash = hash
	})
	_ = cryptox.VerifyPassword(password, s.decoyHash)
}

// Login checks credentials and opens a session bound to the presenting
// device. Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*SessionResult, error) {
	log := s.log(ctx)

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, newError(ErrBadRequest.Code, "email and password are required")
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.decoyPasswordCheck(ctx, in.Password)
			log.Info("login failed", "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "login lookup", err)
	}

	if !user.Active {
		log.Info("login refused", "user_id", user.ID, "reason", "inactive")
		return nil, ErrInactiveAccount
	}

	if err := cryptox.VerifyPassword(in.Password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Info("login failed", "user_id", user.ID, "reason", "bad password")
			return nil, ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "login password check", err)
	}

	var appTokenID, deviceID string
	if in.AppToken != "" {
		app, err := s.Tokens.VerifyKind(ctx, in.AppToken, jwtx.KindApp)
		if err != nil {
			return nil, newError(ErrUnauthorized.Code, "invalid app token")
		}
		appTokenID, deviceID = app.ID, app.DeviceID
	} else {
		deviceID = s.fingerprint()
	}

	res, err := s.openSession(ctx, user, appTokenID, deviceID)
	if err != nil {
		return nil, err
	}

	if err := s.Store.Users().UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		log.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	log.Info("login succeeded", "user_id", user.ID, "session_id", res.SessionID, "dispositivo_id", deviceID)
	return res, nil
}

// openSession issues the pair, persists the session row and caches it. The
// row is written only after both tokens exist.
func (s *AuthService) openSession(ctx context.Context, user domain.User, appTokenID, deviceID string) (*SessionResult, error) {
	access, refresh, roles, perms, err := s.issuePair(user, appTokenID, deviceID)
	if err != nil {
		return nil, s.internal(ctx, "issue tokens", err)
	}

	sess := domain.Session{
		ID:         idx.New().String(),
		UserID:     user.ID,
		RefreshJTI: refresh.JTI,
		AccessJTI:  access.JTI,
		AppTokenID: appTokenID,
		DeviceID:   deviceID,
		ExpiresAt:  refresh.ExpiresAt,
		CreatedAt:  s.now(),
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return nil, s.internal(ctx, "persist session", err)
	}

	s.cacheSession(ctx, user, sess, access, roles)
	return s.sessionResult(user, sess.ID, access, refresh, roles, perms), nil
}

func (s *AuthService) issuePair(user domain.User, appTokenID, deviceID string) (access, refresh IssuedToken, roles, perms []string, err error) {
	roles = rbac.WithDefault(user.Roles)
	perms = rbac.Resolve(roles)

	access, err = s.Tokens.IssueAccessToken(AccessSubject{
		UserID:      user.ID,
		Email:       user.Email,
		Roles:       roles,
		Permissions: perms,
		AppTokenID:  appTokenID,
		DeviceID:    deviceID,
	})
	if err != nil {
		return
	}
	refresh, err = s.Tokens.IssueRefreshToken(user.ID, appTokenID, deviceID)
	return
}

func (s *AuthService) cacheSession(ctx context.Context, user domain.User, sess domain.Session, access IssuedToken, roles []string) {
	if s.Sessions == nil {
		return
	}
	cached := domain.CachedSession{
		SessionID:  sess.ID,
		UserID:     user.ID,
		Email:      user.Email,
		AccessJTI:  access.JTI,
		RefreshJTI: sess.RefreshJTI,
		AppTokenID: sess.AppTokenID,
		DeviceID:   sess.DeviceID,
		Roles:      roles,
		CreatedAt:  sess.CreatedAt,
	}
	if err := s.Sessions.SaveSession(ctx, user.ID, access.Token, cached, s.Tokens.AccessTTL()); err != nil {
		s.log(ctx).Warn("failed to cache session", "user_id", user.ID, "error", err)
	}
}

func (s *AuthService) sessionResult(user domain.User, sessionID string, access, refresh IssuedToken, roles, perms []string) *SessionResult {
	return &SessionResult{
		TokenPair: domain.TokenPair{
			AccessToken:  access.Token,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int64(s.Tokens.AccessTTL() / time.Second),
		},
		SessionID:   sessionID,
		User:        newUserView(user),
		Roles:       roles,
		Permissions: perms,
	}
}

// Logout revokes the access token and, when given, the refresh token and
// its session row. The device's app token stays valid.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	log := s.log(ctx)

	claims, err := s.Tokens.VerifyKind(ctx, accessToken, jwtx.KindAccess)
	if err != nil {
		return ErrUnauthorized
	}

	var rc *jwtx.Claims
	if refreshToken != "" {
		rc, err = s.Tokens.VerifyKind(ctx, refreshToken, jwtx.KindRefresh)
		if err != nil {
			log.Debug("logout ignored unusable refresh token")
			rc = nil
		} else if rc.UserID != claims.UserID {
			return newError(ErrForbidden.Code, "refresh token belongs to another user")
		}
	}

	if err := s.Tokens.RevokeID(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		log.Warn("failed to revoke access token", "jti", claims.ID, "error", err)
	}

	if rc != nil {
		if err := s.Tokens.RevokeID(ctx, rc.ID, rc.ExpiresAt.Time); err != nil {
			log.Warn("failed to revoke refresh token", "jti", rc.ID, "error", err)
		}
		err := s.Store.Sessions().CloseSession(ctx, rc.ID, s.now())
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return s.internal(ctx, "close session", err)
		}
	}

	if s.Sessions != nil {
		if err := s.Sessions.DeleteSession(ctx, claims.UserID, accessToken); err != nil {
			log.Warn("failed to drop cached session", "user_id", claims.UserID, "error", err)
		}
	}

	log.Info("logout", "user_id", claims.UserID, "jti", claims.ID)
	return nil
}

// LogoutAll ends every session of the user and reports how many session
// rows were closed. A user without sessions is not an error.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	log := s.log(ctx)
	now := s.now()

	if s.Sessions != nil {
		if n, err := s.Sessions.DeleteAllSessions(ctx, userID); err != nil {
			log.Warn("failed to drop cached sessions", "user_id", userID, "error", err)
		} else {
			log.Debug("dropped cached sessions", "user_id", userID, "count", n)
		}
	}

	sessions, err := s.Store.Sessions().ListActiveSessions(ctx, userID, now)
	if err != nil {
		return 0, s.internal(ctx, "list sessions", err)
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(logoutAllWorkers)
	for _, sess := range sessions {
		g.Go(func() error {
			if err := s.Tokens.RevokeID(gctx, sess.RefreshJTI, sess.ExpiresAt); err != nil {
				log.Warn("failed to revoke refresh token", "jti", sess.RefreshJTI, "error", err)
			}
			accessExp := sess.CreatedAt.Add(s.Tokens.AccessTTL())
			if err := s.Tokens.RevokeID(gctx, sess.AccessJTI, accessExp); err != nil {
				log.Warn("failed to revoke access token", "jti", sess.AccessJTI, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	closed := 0
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, sess := range sessions {
			err := tx.Sessions().CloseSession(ctx, sess.RefreshJTI, now)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			closed++
		}
		return nil
	})
	if err != nil {
		return 0, s.internal(ctx, "close sessions", err)
	}

	log.Info("logout all", "user_id", userID, "sessions", closed)
	return closed, nil
}

var errRefreshRace = errors.New("refresh: session already rotated")

// Refresh rotates a refresh token. Roles and permissions are read again so
// changes since login take effect. The new session is stored before the old
// refresh token is blacklisted.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*SessionResult, error) {
	log := s.log(ctx)
	now := s.now()

	rc, err := s.Tokens.VerifyKind(ctx, refreshToken, jwtx.KindRefresh)
	if err != nil {
		return nil, ErrUnauthorized
	}

	old, err := s.Store.Sessions().GetSessionByRefreshJTI(ctx, rc.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("refresh token without session", "jti", rc.ID)
			return nil, ErrUnauthorized
		}
		return nil, s.internal(ctx, "refresh lookup", err)
	}
	if !old.Active(now) {
		log.Warn("refresh token replayed", "jti", rc.ID, "user_id", rc.UserID)
		return nil, ErrUnauthorized
	}

	user, err := s.Store.Users().GetUserByID(ctx, rc.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrForbidden.Code, "user no longer exists")
		}
		return nil, s.internal(ctx, "refresh user lookup", err)
	}
	if !user.Active {
		return nil, ErrInactiveAccount
	}

	access, refresh, roles, perms, err := s.issuePair(user, rc.AppTokenID, rc.DeviceID)
	if err != nil {
		return nil, s.internal(ctx, "issue tokens", err)
	}

	sess := domain.Session{
		ID:         idx.New().String(),
		UserID:     user.ID,
		RefreshJTI: refresh.JTI,
		AccessJTI:  access.JTI,
		AppTokenID: rc.AppTokenID,
		DeviceID:   rc.DeviceID,
		ExpiresAt:  refresh.ExpiresAt,
		CreatedAt:  now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, sess); err != nil {
			return err
		}
		if err := tx.Sessions().CloseSession(ctx, rc.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errRefreshRace
			}
			return err
		}
		return nil
	})
	if errors.Is(err, errRefreshRace) {
		log.Warn("refresh lost race", "jti", rc.ID, "user_id", user.ID)
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, s.internal(ctx, "rotate session", err)
	}

	if err := s.Tokens.RevokeID(ctx, rc.ID, rc.ExpiresAt.Time); err != nil {
		log.Warn("failed to blacklist rotated refresh token", "jti", rc.ID, "error", err)
	}

	s.cacheSession(ctx, user, sess, access, roles)

	log.Info("refresh succeeded", "user_id", user.ID, "session_id", sess.ID)
	return s.sessionResult(user, sess.ID, access, refresh, roles, perms), nil
}

// RegisterDevice issues an app token for a device. No account is involved.
func (s *AuthService) RegisterDevice(ctx context.Context, in RegisterDeviceInput) (*DeviceResult, error) {
	deviceID := strings.TrimSpace(in.DeviceID)
	if deviceID == "" {
		deviceID = s.fingerprint()
	}

	app, err := s.Tokens.IssueAppToken(deviceID, in.Metadata)
	if err != nil {
		return nil, s.internal(ctx, "issue app token", err)
	}

	if s.Sessions != nil {
		dev := domain.Device{
			DeviceID:     deviceID,
			AppTokenID:   app.JTI,
			Metadata:     in.Metadata,
			RegisteredAt: s.now(),
			ExpiresAt:    app.ExpiresAt,
		}
		if err := s.Sessions.CacheSet(ctx, deviceCachePrefix+deviceID, dev, s.Tokens.AppTTL()); err != nil {
			s.log(ctx).Warn("failed to cache device", "dispositivo_id", deviceID, "error", err)
		}
	}

	s.log(ctx).Info("device registered", "dispositivo_id", deviceID, "app_token_id", app.JTI)
	return &DeviceResult{AppToken: app.Token, DeviceID: deviceID, ExpiresAt: app.ExpiresAt}, nil
}

// RegisterUser creates an account with the default role. It does not log
// the user in.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (UserView, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)

	if _, err := mail.ParseAddress(email); err != nil {
		return UserView{}, newError(ErrBadRequest.Code, "a valid email is required")
	}
	if username == "" {
		return UserView{}, newError(ErrBadRequest.Code, "username is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return UserView{}, err
	}

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return UserView{}, newError(ErrConflict.Code, "email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return UserView{}, s.internal(ctx, "register email check", err)
	}

	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		return UserView{}, newError(ErrConflict.Code, "username already taken")
	} else if !errors.Is(err, store.ErrNotFound) {
		return UserView{}, s.internal(ctx, "register username check", err)
	}

	hash, err := cryptox.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return UserView{}, s.internal(ctx, "hash password", err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Active:       true,
		Roles:        []string{rbac.DefaultRole},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return UserView{}, newError(ErrConflict.Code, "email or username already registered")
	}
	if err != nil {
		return UserView{}, s.internal(ctx, "create user", err)
	}

	s.log(ctx).Info("user registered", "user_id", user.ID)
	return newUserView(user), nil
}

// RequestPasswordReset sends a single-use reset token. Unknown or inactive
// accounts get the same silent success so the endpoint cannot be used to
// probe for emails.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	log := s.log(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("password reset for unknown email")
			return nil
		}
		return s.internal(ctx, "reset lookup", err)
	}
	if !user.Active {
		log.Debug("password reset for inactive account", "user_id", user.ID)
		return nil
	}

	token, err := cryptox.GenerateToken(cryptox.ResetTokenSize)
	if err != nil {
		return s.internal(ctx, "generate reset token", err)
	}
	expiresAt := s.now().Add(s.resetTTL())

	if err := s.Store.Users().SetResetToken(ctx, user.ID, cryptox.FingerprintToken(token), expiresAt); err != nil {
		return s.internal(ctx, "store reset token", err)
	}

	if s.Notifier != nil {
		if err := s.Notifier.SendPasswordReset(ctx, user, token, expiresAt); err != nil {
			return s.internal(ctx, "send reset token", err)
		}
	}

	log.Info("password reset issued", "user_id", user.ID, "expires_at", expiresAt)
	return nil
}

// ConfirmPasswordReset consumes the reset token, sets the new password and
// ends every session of the user.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	now := s.now()
	fp := cryptox.FingerprintToken(token)

	user, err := s.Store.Users().GetUserByResetTokenHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return s.internal(ctx, "reset token lookup", err)
	}
	if user.ResetExpiresAt == nil || !now.Before(*user.ResetExpiresAt) {
		return ErrInvalidResetToken
	}

	hash, err := cryptox.HashPassword(newPassword, s.BcryptCost)
	if err != nil {
		return s.internal(ctx, "hash password", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().ConsumeResetToken(ctx, user.ID, fp, now); err != nil {
			return err
		}
		return tx.Users().UpdatePasswordHash(ctx, user.ID, hash)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return s.internal(ctx, "apply password reset", err)
	}

	if _, err := s.LogoutAll(ctx, user.ID); err != nil {
		s.log(ctx).Warn("sessions survived password reset", "user_id", user.ID, "error", err)
	}

	s.log(ctx).Info("password reset completed", "user_id", user.ID)
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return newError(ErrBadRequest.Code, "password must be at least 8 characters")
	}
	if len(pw) > cryptox.MaxPasswordBytes {
		return newError(ErrBadRequest.Code, "password is too long")
	}
	return nil
}
