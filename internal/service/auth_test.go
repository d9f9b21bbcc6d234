package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"backend/internal/config"
	"backend/internal/crypto"
	"backend/internal/models"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryUserRepo struct {
	byExt map[string]*models.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{byExt: make(map[string]*models.User)}
}

func (r *memoryUserRepo) UpsertByExtID(_ context.Context, extID, username string, givenName, familyName, fullName *string) (*models.User, error) {
	if existing, ok := r.byExt[extID]; ok {
		if existing.Disabled {
			return nil, repository.ErrUserDisabled
		}
		existing.Username = username
		existing.GivenName = givenName
		existing.FamilyName = familyName
		existing.FullName = fullName
		copied := *existing
		return &copied, nil
	}
	user := &models.User{
		ID:         uuid.New(),
		ExtID:      extID,
		Created:    time.Now(),
		Username:   username,
		GivenName:  givenName,
		FamilyName: familyName,
		FullName:   fullName,
	}
	r.byExt[extID] = user
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range r.byExt {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memoryTokenRepo struct {
	hasher  *crypto.Hasher
	records map[uuid.UUID]string
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{hasher: crypto.NewHasher(), records: make(map[uuid.UUID]string)}
}

func (r *memoryTokenRepo) Issue(_ context.Context, userID uuid.UUID, refreshToken string) error {
	hashed, err := r.hasher.Hash(refreshToken)
	if err != nil {
		return err
	}
	r.records[userID] = hashed
	return nil
}

func (r *memoryTokenRepo) Verify(_ context.Context, userID uuid.UUID, refreshToken string) (bool, error) {
	hashed, ok := r.records[userID]
	if !ok {
		return false, nil
	}
	return r.hasher.Verify(refreshToken, hashed), nil
}

func (r *memoryTokenRepo) Revoke(_ context.Context, userID uuid.UUID) error {
	delete(r.records, userID)
	return nil
}

type fakeProvider struct {
	clientID string
	info     *models.IDInfo
	err      error
}

func (p *fakeProvider) ClientID() string { return p.clientID }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (p *fakeProvider) Exchange(context.Context, string) (*models.IDInfo, error) {
	if p.err != nil {
		return nil, p.err
	}
	copied := *p.info
	return &copied, nil
}

func validIDInfo() *models.IDInfo {
	return &models.IDInfo{
		Aud:        "client-123",
		Iss:        "https://accounts.google.com",
		Sub:        "ext-1",
		Iat:        time.Now(),
		Exp:        time.Now().Add(time.Hour),
		Email:      "alice@example.com",
		Name:       "Alice Smith",
		GivenName:  "Alice",
		FamilyName: "Smith",
	}
}

type testEnv struct {
	users    *memoryUserRepo
	tokens   *memoryTokenRepo
	provider *fakeProvider
	auth     service.AuthService
}

func newTestEnv(t *testing.T, provider *fakeProvider) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Auth.SecretKey = "test-secret"
	cfg.Auth.Algorithm = "HS256"
	cfg.Auth.AccessTokenExpireMin = 30
	cfg.Auth.RefreshTokenExpireDays = 7

	codec, err := token.NewCodec(cfg.Auth.SecretKey, cfg.Auth.Algorithm)
	require.NoError(t, err)

	users := newMemoryUserRepo()
	tokens := newMemoryTokenRepo()
	auth := service.NewAuthService(users, tokens, codec, provider, cfg, zap.NewNop())
	return &testEnv{users: users, tokens: tokens, provider: provider, auth: auth}
}

func TestExchangeCodeCreatesUserAndTokenPair(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: validIDInfo()})

	pair, err := env.auth.ExchangeCode(ctx, "code-A")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "bearer", pair.TokenType)
	require.Equal(t, "HS256", pair.Alg)
	require.Equal(t, "JWT", pair.Typ)

	user, err := env.auth.AuthenticateAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ext-1", user.ExtID)
	require.Equal(t, "alice", user.Username)
}

func TestExchangeCodeSecondLoginUpdatesSameUser(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{clientID: "client-123", info: validIDInfo()}
	env := newTestEnv(t, provider)

	first, err := env.auth.ExchangeCode(ctx, "code-A")
	require.NoError(t, err)
	firstUser, err := env.auth.AuthenticateAccess(ctx, first.AccessToken)
	require.NoError(t, err)

	provider.info.Email = "alice.renamed@example.com"
	provider.info.GivenName = "Alicia"

	second, err := env.auth.ExchangeCode(ctx, "code-B")
	require.NoError(t, err)
	secondUser, err := env.auth.AuthenticateAccess(ctx, second.AccessToken)
	require.NoError(t, err)

	require.Equal(t, firstUser.ID, secondUser.ID)
	require.Equal(t, "alice.renamed", secondUser.Username)
	require.NotNil(t, secondUser.GivenName)
	require.Equal(t, "Alicia", *secondUser.GivenName)
}

func TestExchangeCodeMasksDisabledAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: validIDInfo()})

	env.users.byExt["ext-1"] = &models.User{
		ID:       uuid.New(),
		ExtID:    "ext-1",
		Disabled: true,
		Username: "alice",
	}

	_, err := env.auth.ExchangeCode(ctx, "code-A")
	require.ErrorIs(t, err, service.ErrAuthentication)
	require.NotErrorIs(t, err, service.ErrInactiveAccount)
}

func TestExchangeCodeAssertionChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(info *models.IDInfo)
	}{
		{name: "wrong audience", mutate: func(i *models.IDInfo) { i.Aud = "someone-else" }},
		{name: "wrong issuer", mutate: func(i *models.IDInfo) { i.Iss = "https://evil.example.com" }},
		{name: "expired assertion", mutate: func(i *models.IDInfo) { i.Exp = time.Now().Add(-time.Minute) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := validIDInfo()
			tt.mutate(info)
			env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: info})

			_, err := env.auth.ExchangeCode(context.Background(), "code-A")
			require.ErrorIs(t, err, service.ErrIdentityVerification)
		})
	}
}

func TestExchangeCodeProviderFailure(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", err: context.DeadlineExceeded})

	_, err := env.auth.ExchangeCode(context.Background(), "code-A")
	require.ErrorIs(t, err, service.ErrExternalProvider)
}

func TestUsernameDerivationFallbacks(t *testing.T) {
	ctx := context.Background()

	info := validIDInfo()
	info.Email = ""
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: info})
	pair, err := env.auth.ExchangeCode(ctx, "code-A")
	require.NoError(t, err)
	user, err := env.auth.AuthenticateAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(user.Username, "Alice Smith-"))

	info = validIDInfo()
	info.Email = ""
	info.Name = ""
	env = newTestEnv(t, &fakeProvider{clientID: "client-123", info: info})
	pair, err = env.auth.ExchangeCode(ctx, "code-B")
	require.NoError(t, err)
	user, err = env.auth.AuthenticateAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(user.Username, "user-"))
}

func TestRefreshTokenRotation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: validIDInfo()})

	first, err := env.auth.ExchangeCode(ctx, "code-A")
	require.NoError(t, err)

	user, err := env.auth.AuthenticateRefresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	second, err := env.auth.IssueTokenPair(ctx, user)
	require.NoError(t, err)

	// The old refresh token is dead the moment the new one exists.
	_, err = env.auth.AuthenticateRefresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, service.ErrAuthentication)

	_, err = env.auth.AuthenticateRefresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: validIDInfo()})

	pair, err := env.auth.ExchangeCode(ctx, "code-A")
	require.NoError(t, err)

	user, err := env.auth.AuthenticateAccess(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, user))

	_, err = env.auth.AuthenticateRefresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrAuthentication)

	// Revocation is idempotent.
	require.NoError(t, env.auth.Logout(ctx, user))
}

func TestAccessCheckRejectsRefreshToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: validIDInfo()})

	pair, err := env.auth.ExchangeCode(ctx, "code-A")
	require.NoError(t, err)

	_, err = env.auth.AuthenticateAccess(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrAuthentication)

	_, err = env.auth.AuthenticateRefresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrAuthentication)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: validIDInfo()})

	pair, err := env.auth.ExchangeCode(ctx, "code-A")
	require.NoError(t, err)

	env.users.byExt["ext-1"].Disabled = true

	_, err = env.auth.AuthenticateAccess(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrInactiveAccount)

	_, err = env.auth.AuthenticateRefresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrInactiveAccount)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: validIDInfo()})

	pair, err := env.auth.ExchangeCode(ctx, "code-A")
	require.NoError(t, err)

	delete(env.users.byExt, "ext-1")

	_, err = env.auth.AuthenticateAccess(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrAuthentication)
}

func TestTokenSignedWithDifferentKeyRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: validIDInfo()})

	pair, err := env.auth.ExchangeCode(ctx, "code-A")
	require.NoError(t, err)
	user, err := env.auth.AuthenticateAccess(ctx, pair.AccessToken)
	require.NoError(t, err)

	foreign, err := token.NewCodec("other-key", "HS256")
	require.NoError(t, err)
	forged, err := foreign.Encode(user.ID.String(), user.Username, models.KindAccess, time.Minute)
	require.NoError(t, err)

	_, err = env.auth.AuthenticateAccess(ctx, forged)
	require.ErrorIs(t, err, service.ErrAuthentication)
}

func TestLoginURLCarriesState(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{clientID: "client-123", info: validIDInfo()})

	state, err := env.auth.StateToken()
	require.NoError(t, err)
	require.NotEmpty(t, state)

	url := env.auth.LoginURL(state)
	require.Contains(t, url, "state="+state)
}
