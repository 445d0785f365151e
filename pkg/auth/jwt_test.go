package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		Secret:     "test-secret-key-for-unit-tests",
		Issuer:     "lending-test",
		Expiration: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewJWTService() error = %v", err)
	}
	return svc
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestJWTService(t)
	customerID := uuid.New()

	tokenString, err := svc.GenerateToken(customerID, []string{RoleCustomer})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if tokenString == "" {
		t.Fatal("GenerateToken() returned empty token")
	}

	claims, err := svc.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	if claims.CustomerID != customerID {
		t.Errorf("CustomerID = %v, want %v", claims.CustomerID, customerID)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != RoleCustomer {
		t.Errorf("Roles = %v, want [%s]", claims.Roles, RoleCustomer)
	}
	if claims.Issuer != "lending-test" {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, "lending-test")
	}
	if claims.Subject != customerID.String() {
		t.Errorf("Subject = %q, want %q", claims.Subject, customerID.String())
	}
}

func TestGenerateAndValidateToken_RSA(t *testing.T) {
	privPEM, pubPEM, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	issuer, err := NewJWTService(JWTConfig{PrivateKeyPEM: string(privPEM), Expiration: time.Minute})
	if err != nil {
		t.Fatalf("NewJWTService(issuer) error = %v", err)
	}
	validator, err := NewJWTService(JWTConfig{PublicKeyPEM: string(pubPEM)})
	if err != nil {
		t.Fatalf("NewJWTService(validator) error = %v", err)
	}

	tokenString, err := issuer.GenerateToken(uuid.Nil, []string{RoleAdmin})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := validator.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if !claims.HasRole(RoleAdmin) {
		t.Errorf("Roles = %v, want admin", claims.Roles)
	}

	if _, err := validator.GenerateToken(uuid.New(), nil); !errors.Is(err, ErrValidationOnly) {
		t.Errorf("GenerateToken() in validation-only mode error = %v, want ErrValidationOnly", err)
	}
}

func TestNewJWTService_NoKey(t *testing.T) {
	if _, err := NewJWTService(JWTConfig{}); err == nil {
		t.Fatal("NewJWTService() expected error without key material, got nil")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc, _ := NewJWTService(JWTConfig{
		Secret:     "test-secret-key-for-unit-tests",
		Issuer:     "lending-test",
		Expiration: -1 * time.Hour, // already expired
	})

	tokenString, err := svc.GenerateToken(uuid.New(), []string{RoleCustomer})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	_, err = svc.ValidateToken(tokenString)
	if err == nil {
		t.Fatal("ValidateToken() expected error for expired token, got nil")
	}
}

func TestValidateToken_InvalidSignature(t *testing.T) {
	svc1, _ := NewJWTService(JWTConfig{Secret: "secret-one", Expiration: 15 * time.Minute})
	svc2, _ := NewJWTService(JWTConfig{Secret: "secret-two", Expiration: 15 * time.Minute})

	tokenString, err := svc1.GenerateToken(uuid.New(), []string{RoleCustomer})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := svc2.ValidateToken(tokenString); err == nil {
		t.Fatal("ValidateToken() expected error for invalid signature, got nil")
	}
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	other, _ := NewJWTService(JWTConfig{
		Secret:     "test-secret-key-for-unit-tests",
		Issuer:     "someone-else",
		Expiration: time.Minute,
	})

	tokenString, err := other.GenerateToken(uuid.New(), []string{RoleCustomer})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := newTestJWTService(t).ValidateToken(tokenString); err == nil {
		t.Fatal("ValidateToken() expected issuer mismatch error, got nil")
	}
}

func TestValidateToken_WithinLeeway(t *testing.T) {
	issuer, _ := NewJWTService(JWTConfig{Secret: "leeway-secret", Expiration: -30 * time.Second})
	validator, _ := NewJWTService(JWTConfig{Secret: "leeway-secret", Leeway: time.Minute})

	tokenString, err := issuer.GenerateToken(uuid.New(), []string{RoleCustomer})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := validator.ValidateToken(tokenString); err != nil {
		t.Fatalf("ValidateToken() within leeway error = %v", err)
	}
}

func TestHasRole(t *testing.T) {
	claims := Claims{Roles: []string{RoleAdmin}}

	if !claims.HasRole(RoleAdmin) {
		t.Error("HasRole(RoleAdmin) = false, want true")
	}
	if claims.HasRole(RoleCustomer) {
		t.Error("HasRole(RoleCustomer) = true, want false")
	}
}

func TestCanActFor(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	tests := []struct {
		name   string
		claims Claims
		target uuid.UUID
		want   bool
	}{
		{"admin acts for anyone", Claims{Roles: []string{RoleAdmin}}, other, true},
		{"customer acts for self", Claims{CustomerID: owner, Roles: []string{RoleCustomer}}, owner, true},
		{"customer cannot act for others", Claims{CustomerID: owner, Roles: []string{RoleCustomer}}, other, false},
		{"customer without id", Claims{Roles: []string{RoleCustomer}}, uuid.Nil, false},
		{"no roles", Claims{CustomerID: owner}, owner, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claims.CanActFor(tt.target); got != tt.want {
				t.Errorf("CanActFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClaimsFromContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := ClaimsFromContext(ctx); ok {
		t.Error("ClaimsFromContext() ok = true for empty context, want false")
	}

	expected := &Claims{CustomerID: uuid.New(), Roles: []string{RoleCustomer}}
	got, ok := ClaimsFromContext(ContextWithClaims(ctx, expected))
	if !ok {
		t.Fatal("ClaimsFromContext() ok = false, want true")
	}
	if got.CustomerID != expected.CustomerID {
		t.Errorf("ClaimsFromContext().CustomerID = %v, want %v", got.CustomerID, expected.CustomerID)
	}
}
