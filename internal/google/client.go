package google

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Client swaps a Google OAuth2 authorization code for the user's ID token.
// The id_token arrives over the provider's TLS channel in direct response
// to the code exchange, so its payload is extracted without a local
// signature check; the service layer still validates audience, issuer and
// expiry.
type Client struct {
	conf *oauth2.Config
}

func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
	}
}

// ClientID returns the registered OAuth2 client identifier, the expected
// audience of every ID token this client receives.
func (c *Client) ClientID() string {
	return c.conf.ClientID
}

// AuthCodeURL builds the provider URL the login handler redirects to.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	Locale     string `json:"locale"`
}

// Exchange swaps the authorization code and returns the decoded ID-token
// payload.
func (c *Client) Exchange(ctx context.Context, code string) (*models.IDInfo, error) {
	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, errors.New("token response contains no id_token")
	}

	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token: %w", err)
	}

	info := &models.IDInfo{
		Iss:        claims.Issuer,
		Sub:        claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Picture:    claims.Picture,
		Locale:     claims.Locale,
	}
	if len(claims.Audience) > 0 {
		info.Aud = claims.Audience[0]
	}
	if claims.IssuedAt != nil {
		info.Iat = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.Exp = claims.ExpiresAt.Time
	}
	return info, nil
}
