package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/conychips/auth/pkg/jwtx"
	"github.com/conychips/auth/pkg/slogx"
)

// Blacklist is the part of the revocation store the token service needs.
type Blacklist interface {
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

type TokenConfig struct {
	Issuer   string
	Audience []string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	AppTTL     time.Duration

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration

	// KeyID goes into the kid header. Empty derives it from the public key.
	KeyID string
}

func (c *TokenConfig) defaults() {
	if c.AccessTTL <= 0 {
		c.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if c.AppTTL <= 0 {
		c.AppTTL = jwtx.DefaultAppTokenTTL
	}
}

// IssuedToken is a freshly signed token with the identifiers callers need
// for bookkeeping.
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// AccessSubject is everything an access token says about its holder.
type AccessSubject struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []string
	AppTokenID  string
	DeviceID    string
}

type TokenOption func(*TokenService)

// WithClock replaces time.Now for issuance and verification.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// TokenService issues, verifies and revokes the app, access and refresh
// tokens. The key pair is fixed for the life of the service.
type TokenService struct {
	cfg       TokenConfig
	signer    jwtx.Signer
	verifier  *jwtx.RS256Verifier
	blacklist Blacklist
	logger    *slog.Logger
	now       func() time.Time
}

// NewTokenService loads the key pair from PEM and checks that the public key
// belongs to the private key.
func NewTokenService(
	cfg TokenConfig,
	privatePEM, publicPEM []byte,
	blacklist Blacklist,
	logger *slog.Logger,
	opts ...TokenOption,
) (*TokenService, error) {
	cfg.defaults()
	if cfg.Issuer == "" {
		return nil, errors.New("token service: issuer is required")
	}
	if len(cfg.Audience) == 0 {
		return nil, errors.New("token service: audience is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &TokenService{
		cfg:       cfg,
		blacklist: blacklist,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	signer, err := jwtx.NewSignerRS256(cfg.KeyID, privatePEM)
	if err != nil {
		return nil, fmt.Errorf("token service: private key: %w", err)
	}

	verifier, err := jwtx.NewVerifierRS256FromPEM(publicPEM, jwtx.VerifyOptions{
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Leeway:   cfg.Leeway,
		Now:      s.clock,
	})
	if err != nil {
		return nil, fmt.Errorf("token service: public key: %w", err)
	}

	if !signer.PublicJWK().Matches(verifier.PublicKey()) {
		return nil, errors.New("token service: public key does not match private key")
	}

	s.signer = signer
	s.verifier = verifier
	return s, nil
}

func (s *TokenService) clock() time.Time { return s.now().UTC() }

func (s *TokenService) log(ctx context.Context) *slog.Logger {
	return slogx.FromContextOr(ctx, s.logger)
}

func (s *TokenService) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }
func (s *TokenService) AppTTL() time.Duration     { return s.cfg.AppTTL }

// JWKS publishes the verification key.
func (s *TokenService) JWKS() jwtx.JWKS {
	return jwtx.JWKS{Keys: []jwtx.JWK{s.signer.PublicJWK()}}
}

// Ready reports whether signing keys are loaded.
func (s *TokenService) Ready() error {
	return s.signer.Validate()
}

// IssueAppToken binds a device to the service. It carries no user.
func (s *TokenService) IssueAppToken(deviceID string, metadata map[string]any) (IssuedToken, error) {
	c := s.newClaims(jwtx.KindApp, s.cfg.AppTTL)
	c.DeviceID = deviceID
	if len(metadata) > 0 {
		c.Metadata = maps.Clone(metadata)
	}
	return s.sign(c)
}

func (s *TokenService) IssueAccessToken(sub AccessSubject) (IssuedToken, error) {
	c := s.newClaims(jwtx.KindAccess, s.cfg.AccessTTL)
	c.UserID = sub.UserID
	c.Email = sub.Email
	c.Roles = slices.Clone(sub.Roles)
	c.Permissions = slices.Clone(sub.Permissions)
	c.AppTokenID = sub.AppTokenID
	c.DeviceID = sub.DeviceID
	return s.sign(c)
}

func (s *TokenService) IssueRefreshToken(userID, appTokenID, deviceID string) (IssuedToken, error) {
	c := s.newClaims(jwtx.KindRefresh, s.cfg.RefreshTTL)
	c.UserID = userID
	c.AppTokenID = appTokenID
	c.DeviceID = deviceID
	return s.sign(c)
}

func (s *TokenService) newClaims(kind jwtx.Kind, ttl time.Duration) jwtx.Claims {
	return jwtx.NewClaims(kind, s.cfg.Issuer, s.cfg.Audience, ttl, s.clock())
}

func (s *TokenService) sign(c jwtx.Claims) (IssuedToken, error) {
	tok, err := s.signer.Sign(c)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", c.Kind, err)
	}
	return IssuedToken{Token: tok, JTI: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Verify checks signature, time claims, required claims, issuer, audience
// and finally the blacklist. Every failure is reported as ErrInvalidToken;
// the reason is only logged. A blacklist that cannot be reached is skipped.
func (s *TokenService) Verify(ctx context.Context, token string) (*jwtx.Claims, error) {
	log := s.log(ctx)

	claims, err := s.verifier.Verify(token)
	if err != nil {
		log.Debug("token rejected", "reason", err)
		return nil, ErrInvalidToken
	}

	if s.blacklist != nil {
		listed, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		switch {
		case err != nil:
			log.Warn("blacklist unavailable, skipping revocation check", "jti", claims.ID, "error", err)
		case listed:
			log.Debug("token rejected", "reason", "revoked", "jti", claims.ID)
			return nil, ErrInvalidToken
		}
	}

	return claims, nil
}

// VerifyKind is Verify plus a check on the tipo claim.
func (s *TokenService) VerifyKind(ctx context.Context, token string, kind jwtx.Kind) (*jwtx.Claims, error) {
	claims, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		s.log(ctx).Debug("token rejected", "reason", "wrong kind", "want", kind, "got", claims.Kind)
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoke blacklists the token until its natural expiry. The signature is
// checked but expiry is not, so a token can be revoked right up to the end
// of its life. An already expired token needs nothing and reports true.
func (s *TokenService) Revoke(ctx context.Context, token string) (bool, error) {
	claims, err := s.verifier.VerifySignature(token)
	if err != nil {
		s.log(ctx).Debug("revoke rejected", "reason", err)
		return false, ErrInvalidToken
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return false, ErrInvalidToken
	}

	if err := s.RevokeID(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return false, err
	}
	return true, nil
}

// RevokeID blacklists jti until exp. Nothing is written once exp has passed.
func (s *TokenService) RevokeID(ctx context.Context, jti string, exp time.Time) error {
	ttl := exp.Sub(s.clock())
	if ttl <= 0 {
		return nil
	}
	if s.blacklist == nil {
		return errors.New("token service: no blacklist configured")
	}
	if err := s.blacklist.AddToBlacklist(ctx, jti, ttl); err != nil {
		return fmt.Errorf("blacklist %s: %w", jti, err)
	}
	return nil
}

// ExtractUserID reads usuario_id without verifying the token.
func (s *TokenService) ExtractUserID(token string) (string, error) {
	u, err := jwtx.Decode(token)
	if err != nil {
		return "", err
	}
	return u.UserID(), nil
}

// ExtractJTI reads jti without verifying the token.
func (s *TokenService) ExtractJTI(token string) (string, error) {
	u, err := jwtx.Decode(token)
	if err != nil {
		return "", err
	}
	return u.JTI(), nil
}

// RemainingSeconds reports whole seconds until exp, zero when expired or
// undecodable.
func (s *TokenService) RemainingSeconds(token string) int64 {
	u, err := jwtx.Decode(token)
	if err != nil {
		return 0
	}
	return int64(u.Remaining(s.clock()) / time.Second)
}
