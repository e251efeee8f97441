package jwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testIssuer = "studysphere"

func newTestService(t *testing.T) *Service {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return NewTestService(key, testIssuer, 15*time.Minute)
}

func studentClaims() Claims {
	return Claims{
		UserID:   "user:ada",
		Email:    "ada@example.com",
		Username: "ada",
		Role:     "user",
	}
}

func TestClaims_Valid(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name    string
		claims  Claims
		wantErr error
	}{
		{"no temporal claims", Claims{UserID: "user:ada"}, nil},
		{"not expired", Claims{ExpiresAt: now.Add(time.Hour).Unix()}, nil},
		{"expired", Claims{ExpiresAt: now.Add(-time.Hour).Unix()}, ErrTokenExpired},
		{"not yet valid", Claims{NotBefore: now.Add(time.Hour).Unix()}, ErrTokenNotYetValid},
		{"not-before in past", Claims{NotBefore: now.Add(-time.Hour).Unix()}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.claims.Valid(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClaims_IsAdmin(t *testing.T) {
	t.Parallel()

	admin := Claims{UserID: "user:root", Role: "admin"}
	if !admin.IsAdmin() {
		t.Error("admin role should report IsAdmin")
	}
	student := studentClaims()
	if student.IsAdmin() {
		t.Error("regular user should not report IsAdmin")
	}
}

func TestSign_StampsStandardClaims(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	before := time.Now().Unix()
	token, err := svc.Sign(studentClaims())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	after := time.Now().Unix()

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if claims.Issuer != testIssuer {
		t.Errorf("expected issuer %q, got %q", testIssuer, claims.Issuer)
	}
	if claims.IssuedAt < before || claims.IssuedAt > after {
		t.Errorf("issued-at %d outside [%d,%d]", claims.IssuedAt, before, after)
	}
	wantExp := claims.IssuedAt + int64((15 * time.Minute).Seconds())
	if claims.ExpiresAt != wantExp {
		t.Errorf("expected default expiry %d, got %d", wantExp, claims.ExpiresAt)
	}
}

func TestSign_PreservesCustomExpiration(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	custom := time.Now().Add(48 * time.Hour).Unix()
	claims := studentClaims()
	claims.ExpiresAt = custom

	token, err := svc.Sign(claims)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	decoded, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if decoded.ExpiresAt != custom {
		t.Errorf("expected caller-set expiry %d, got %d", custom, decoded.ExpiresAt)
	}
}

func TestSign_WithoutPrivateKey_ReturnsErrInvalidKey(t *testing.T) {
	t.Parallel()

	svc, err := NewService(Config{Issuer: testIssuer})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if _, err := svc.Sign(studentClaims()); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestSignAndValidate_RoundTrip(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	token, err := svc.Sign(studentClaims())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user:ada" || claims.Email != "ada@example.com" {
		t.Errorf("identity claims lost in round trip: %+v", claims)
	}
	if claims.Username != "ada" || claims.Role != "user" {
		t.Errorf("profile claims lost in round trip: %+v", claims)
	}
}

func TestValidate_MalformedTokens(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one part", "justonepart"},
		{"two parts", "header.claims"},
		{"four parts", "a.b.c.d"},
		{"garbage base64 signature", "eyJhbGciOiJSUzI1NiJ9.eyJzdWIiOiJ4In0.!!not-base64!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestValidate_TamperedClaims_ReturnsErrInvalidSignature(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	token, err := svc.Sign(studentClaims())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	// Splice in a claims segment asserting an admin role
	forged := Claims{UserID: "user:ada", Role: "admin"}
	forgedToken, err := svc.Sign(forged)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	parts := strings.Split(token, ".")
	forgedParts := strings.Split(forgedToken, ".")
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	if _, err := svc.Validate(tampered); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestValidate_DifferentKey_ReturnsErrInvalidSignature(t *testing.T) {
	t.Parallel()

	signer := newTestService(t)
	verifier := newTestService(t)

	token, err := signer.Sign(studentClaims())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature for foreign key, got %v", err)
	}
}

func TestValidate_ExpiredToken_ReturnsErrTokenExpired(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	claims := studentClaims()
	claims.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	token, err := svc.Sign(claims)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := svc.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidate_WrongIssuer_ReturnsErrInvalidToken(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	signer := NewTestService(key, "some-other-service", 15*time.Minute)
	verifier := NewTestService(key, testIssuer, 15*time.Minute)

	token, err := signer.Sign(studentClaims())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
}

func TestValidate_WithoutPublicKey_ReturnsErrInvalidKey(t *testing.T) {
	t.Parallel()

	svc, err := NewService(Config{Issuer: testIssuer})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if _, err := svc.Validate("a.b.c"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestGetExpiration(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	svc := NewTestService(key, testIssuer, 42*time.Minute)
	if svc.GetExpiration() != 42*time.Minute {
		t.Errorf("expected 42m, got %v", svc.GetExpiration())
	}
}

func TestBase64URL_RoundTrip(t *testing.T) {
	t.Parallel()

	// Lengths chosen to hit every padding case
	inputs := []string{"", "a", "ab", "abc", "abcd", `{"user_id":"user:ada"}`}
	for _, in := range inputs {
		encoded := base64URLEncode([]byte(in))
		if strings.ContainsAny(encoded, "=+/") {
			t.Errorf("encoding of %q not URL-safe unpadded: %q", in, encoded)
		}
		decoded, err := base64URLDecode(encoded)
		if err != nil {
			t.Fatalf("decode of %q failed: %v", encoded, err)
		}
		if string(decoded) != in {
			t.Errorf("round trip changed %q to %q", in, decoded)
		}
	}
}

func TestGenerateKeyPair_ProducesLoadableKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	if err := GenerateKeyPair(privPath, pubPath); err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	svc, err := NewService(Config{
		PrivateKeyPath: privPath,
		Issuer:         testIssuer,
		ExpirationMins: 15,
	})
	if err != nil {
		t.Fatalf("NewService failed on generated keys: %v", err)
	}

	token, err := svc.Sign(studentClaims())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := svc.Validate(token); err != nil {
		t.Errorf("Validate failed on generated keys: %v", err)
	}

	// The public half on its own should support validation-only services
	verifier, err := NewService(Config{PublicKeyPath: pubPath, Issuer: testIssuer})
	if err != nil {
		t.Fatalf("NewService failed on public key: %v", err)
	}
	if _, err := verifier.Validate(token); err != nil {
		t.Errorf("validation-only service rejected a valid token: %v", err)
	}
}

func TestGenerateKeyPair_UnwritablePath_ReturnsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := GenerateKeyPair(filepath.Join(dir, "missing", "private.pem"), filepath.Join(dir, "public.pem")); err == nil {
		t.Error("expected error for unwritable private key path")
	}
	if err := GenerateKeyPair(filepath.Join(dir, "private.pem"), filepath.Join(dir, "missing", "public.pem")); err == nil {
		t.Error("expected error for unwritable public key path")
	}
}

func TestNewService_KeyLoadingErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notPEM := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(notPEM, []byte("not a pem file"), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	// An EC key is valid PEM but the wrong key type for RS256
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate EC key: %v", err)
	}
	ecDER, err := x509.MarshalPKIXPublicKey(&ecKey.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal EC key: %v", err)
	}
	wrongType := filepath.Join(dir, "wrong.pem")
	ecPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: ecDER})
	if err := os.WriteFile(wrongType, ecPEM, 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"private key missing", Config{PrivateKeyPath: filepath.Join(dir, "nope.pem")}},
		{"public key missing", Config{PublicKeyPath: filepath.Join(dir, "nope.pem")}},
		{"private key not PEM", Config{PrivateKeyPath: notPEM}},
		{"public key not PEM", Config{PublicKeyPath: notPEM}},
		{"public key wrong type", Config{PublicKeyPath: wrongType}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewService(tt.cfg); err == nil {
				t.Error("expected key loading error")
			}
		})
	}
}
