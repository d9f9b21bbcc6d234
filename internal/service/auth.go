package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend/internal/config"
	"backend/internal/models"
	"backend/internal/repository"
	"backend/internal/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ( // Define custom errors
	// ErrAuthentication deliberately covers unresolvable users, failed
	// refresh-hash matches and disabled accounts hit during login, so a
	// caller cannot enumerate which case occurred.
	ErrAuthentication = errors.New("could not validate credentials")
	// ErrInactiveAccount surfaces a disabled account at direct
	// authentication checkpoints only.
	ErrInactiveAccount = errors.New("inactive account")
	// ErrIdentityVerification means the provider's identity assertion
	// failed the audience, issuer or expiry check.
	ErrIdentityVerification = errors.New("identity assertion rejected")
	// ErrExternalProvider means the code exchange itself failed.
	ErrExternalProvider = errors.New("identity provider exchange failed")
)

// Issuer values Google uses in ID tokens, with and without scheme.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// IdentityProvider is the external OAuth2 collaborator.
type IdentityProvider interface {
	ClientID() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.IDInfo, error)
}

type AuthService interface {
	LoginURL(state string) string
	StateToken() (string, error)
	ExchangeCode(ctx context.Context, code string) (*models.TokenPair, error)
	IssueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error)
	AuthenticateAccess(ctx context.Context, tokenString string) (*models.User, error)
	AuthenticateRefresh(ctx context.Context, tokenString string) (*models.User, error)
	Logout(ctx context.Context, user *models.User) error
}

type authService struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	codec    *token.Codec
	provider IdentityProvider
	cfg      *config.Config
	logger   *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, codec *token.Codec, provider IdentityProvider, cfg *config.Config, logger *zap.Logger) AuthService {
	return &authService{
		users:    users,
		tokens:   tokens,
		codec:    codec,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// LoginURL builds the provider authorization URL for the login redirect.
func (s *authService) LoginURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// StateToken generates a random state value for the OAuth2 hand-off.
func (s *authService) StateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ExchangeCode runs the full login transition: code exchange, assertion
// verification, user upsert and token-pair issuance.
func (s *authService) ExchangeCode(ctx context.Context, code string) (*models.TokenPair, error) {
	info, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("Code exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrExternalProvider, err)
	}

	if err := s.verifyAssertion(info); err != nil {
		s.logger.Warn("Identity assertion rejected", zap.Error(err))
		return nil, err
	}

	username := s.deriveUsername(info)
	user, err := s.users.UpsertByExtID(ctx, info.Sub, username,
		optional(info.GivenName), optional(info.FamilyName), optional(info.Name))
	if err != nil {
		if errors.Is(err, repository.ErrUserDisabled) {
			// Masked on purpose: a disabled account looks no different
			// from bad credentials to the caller.
			return nil, ErrAuthentication
		}
		s.logger.Error("Failed to upsert user", zap.Error(err))
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	s.logger.Info("User logged in successfully.", zap.String("username", user.Username))
	return s.IssueTokenPair(ctx, user)
}

func (s *authService) verifyAssertion(info *models.IDInfo) error {
	if info.Aud != s.provider.ClientID() {
		return fmt.Errorf("%w: unexpected audience", ErrIdentityVerification)
	}
	issuerOK := false
	for _, iss := range googleIssuers {
		if info.Iss == iss {
			issuerOK = true
			break
		}
	}
	if !issuerOK {
		return fmt.Errorf("%w: unexpected issuer %q", ErrIdentityVerification, info.Iss)
	}
	if !info.Exp.After(time.Now()) {
		return fmt.Errorf("%w: assertion expired", ErrIdentityVerification)
	}
	return nil
}

// deriveUsername prefers the local part of the email, then the display
// name, then a bare random handle.
func (s *authService) deriveUsername(info *models.IDInfo) string {
	if info.Email != "" {
		return strings.SplitN(info.Email, "@", 2)[0]
	}
	suffix := uuid.NewString()[:8]
	if info.Name != "" {
		return fmt.Sprintf("%s-%s", info.Name, suffix)
	}
	return fmt.Sprintf("user-%s", suffix)
}

// IssueTokenPair creates a fresh access/refresh pair and rotates the
// stored refresh-token hash. The previous refresh token stops validating
// as soon as the new record commits.
func (s *authService) IssueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	accessToken, err := s.codec.Encode(user.ID.String(), user.Username, models.KindAccess, s.cfg.AccessTokenTTL())
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	refreshToken, err := s.codec.Encode(user.ID.String(), user.Username, models.KindRefresh, s.cfg.RefreshTokenTTL())
	if err != nil {
		s.logger.Error("Failed to generate refresh token", zap.Error(err))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.tokens.Issue(ctx, user.ID, refreshToken); err != nil {
		s.logger.Error("Failed to store refresh token", zap.Error(err))
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		Alg:          s.codec.Algorithm(),
		Typ:          "JWT",
	}, nil
}

// AuthenticateAccess resolves the user behind a presented access token.
func (s *authService) AuthenticateAccess(ctx context.Context, tokenString string) (*models.User, error) {
	return s.authenticate(ctx, tokenString, models.KindAccess)
}

// AuthenticateRefresh additionally checks the presented token against the
// stored hash, which is what makes an old refresh token die the moment a
// new pair is issued.
func (s *authService) AuthenticateRefresh(ctx context.Context, tokenString string) (*models.User, error) {
	user, err := s.authenticate(ctx, tokenString, models.KindRefresh)
	if err != nil {
		return nil, err
	}

	ok, err := s.tokens.Verify(ctx, user.ID, tokenString)
	if err != nil {
		s.logger.Error("Failed to verify stored refresh token", zap.Error(err))
		return nil, fmt.Errorf("failed to verify refresh token: %w", err)
	}
	if !ok {
		return nil, ErrAuthentication
	}
	return user, nil
}

func (s *authService) authenticate(ctx context.Context, tokenString string, kind models.TokenKind) (*models.User, error) {
	claims, err := s.codec.Decode(tokenString, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrAuthentication
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthentication
		}
		s.logger.Error("Failed to get user by id", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	if !user.Active() {
		return nil, ErrInactiveAccount
	}
	return user, nil
}

// Logout revokes the user's stored refresh token. The access token stays
// cryptographically valid until its own expiry.
func (s *authService) Logout(ctx context.Context, user *models.User) error {
	if err := s.tokens.Revoke(ctx, user.ID); err != nil {
		s.logger.Error("Failed to revoke refresh token", zap.Error(err))
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	s.logger.Info("User logged out successfully.", zap.String("username", user.Username))
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
