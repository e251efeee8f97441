package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/studysphere/api/internal/model"
)

// OAuthProvider represents supported OAuth providers
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google"
)

// googleTokenInfoURL validates an ID token server-side
const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// acceptedGoogleIssuers are the issuer values Google uses in ID tokens
var acceptedGoogleIssuers = []string{
	"accounts.google.com",
	"https://accounts.google.com",
}

// GoogleOAuthConfig holds Google OAuth settings
type GoogleOAuthConfig struct {
	ClientID string
}

// IsConfigured returns true if the provider can be used
func (c GoogleOAuthConfig) IsConfigured() bool {
	return c.ClientID != ""
}

// OAuthService handles sign-in with Google ID token credentials. The
// client performs the OAuth dance with Google and posts the resulting
// ID token here; we verify it, upsert the user, and issue our own tokens.
type OAuthService struct {
	config       GoogleOAuthConfig
	identityRepo IdentityRepository
	userRepo     UserRepository
	tokenService *TokenService
	httpClient   *http.Client
	tokenInfoURL string
}

// OAuthServiceConfig holds configuration for the OAuth service
type OAuthServiceConfig struct {
	Config       GoogleOAuthConfig
	IdentityRepo IdentityRepository
	UserRepo     UserRepository
	TokenService *TokenService
}

// NewOAuthService creates a new OAuth service
func NewOAuthService(cfg OAuthServiceConfig) *OAuthService {
	return &OAuthService{
		config:       cfg.Config,
		identityRepo: cfg.IdentityRepo,
		userRepo:     cfg.UserRepo,
		tokenService: cfg.TokenService,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokenInfoURL: googleTokenInfoURL,
	}
}

// OAuthResult represents a successful OAuth authentication
type OAuthResult struct {
	User      *model.User
	TokenPair *TokenPair
	IsNewUser bool
}

// GoogleUserInfo represents the verified claims of a Google ID token
type GoogleUserInfo struct {
	ID            string `json:"sub"`
	Issuer        string `json:"iss"`
	Audience      string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"` // Google returns "true"/"false"
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// AuthenticateGoogle verifies a Google ID token credential and signs the
// user in, creating the account on first sight.
func (s *OAuthService) AuthenticateGoogle(ctx context.Context, credential string) (*OAuthResult, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, ErrInvalidIDToken
	}

	userInfo, err := s.verifyGoogleIDToken(ctx, credential)
	if err != nil {
		return nil, err
	}

	if userInfo.Email == "" {
		return nil, ErrInvalidIDToken
	}
	if userInfo.EmailVerified != "true" {
		return nil, ErrEmailNotVerified
	}

	return s.handleOAuthUser(ctx, ProviderGoogle, userInfo)
}

// handleOAuthUser resolves the verified identity to a local account,
// creating user and identity records as needed
func (s *OAuthService) handleOAuthUser(ctx context.Context, provider OAuthProvider, info *GoogleUserInfo) (*OAuthResult, error) {
	// Existing identity: straight login
	identity, err := s.identityRepo.GetByProviderID(ctx, string(provider), info.ID)
	if err != nil {
		return nil, err
	}
	if identity != nil {
		user, err := s.userRepo.GetByID(ctx, identity.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}

		tokenPair, err := s.tokenService.GenerateTokenPair(ctx, user)
		if err != nil {
			return nil, err
		}
		return &OAuthResult{User: user, TokenPair: tokenPair}, nil
	}

	email := strings.ToLower(info.Email)

	// Account with this email: attach the identity to it
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	isNew := false
	if user == nil {
		user = &model.User{
			Email:         email,
			Firstname:     stringPtr(info.GivenName),
			Lastname:      stringPtr(info.FamilyName),
			Image:         stringPtr(info.Picture),
			Role:          model.UserRoleUser,
			XP:            0,
			Level:         1,
			EmailVerified: true,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		isNew = true
	}

	identityModel := &model.Identity{
		UserID:                  user.ID,
		Provider:                string(provider),
		ProviderUserID:          info.ID,
		ProviderEmail:           &email,
		EmailVerifiedByProvider: true,
	}
	if err := s.identityRepo.Create(ctx, identityModel); err != nil {
		return nil, err
	}

	tokenPair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	return &OAuthResult{
		User:      user,
		TokenPair: tokenPair,
		IsNewUser: isNew,
	}, nil
}

// verifyGoogleIDToken validates the credential against Google's tokeninfo
// endpoint and checks issuer and audience
func (s *OAuthService) verifyGoogleIDToken(ctx context.Context, credential string) (*GoogleUserInfo, error) {
	endpoint := s.tokenInfoURL + "?id_token=" + url.QueryEscape(credential)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidIDToken
	}

	var info GoogleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, ErrInvalidIDToken
	}

	if !issuerAccepted(info.Issuer) {
		return nil, ErrInvalidIDToken
	}
	if s.config.ClientID != "" && info.Audience != s.config.ClientID {
		return nil, ErrInvalidIDToken
	}

	return &info, nil
}

func issuerAccepted(issuer string) bool {
	for _, accepted := range acceptedGoogleIssuers {
		if issuer == accepted {
			return true
		}
	}
	return false
}
