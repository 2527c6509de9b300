// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives, token management and the
// authorization vocabulary (roles, scopes, principals).
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing,
// refresh-token encryption) from the domain logic. It acts as an
// infrastructure service injected into the OAuth core and the middleware.
package sec

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims represents the payload embedded inside an OAuth access token.
//
// Scopes and role are captured at issuance. A role change takes effect on the
// next issued token.
type AccessClaims struct {
	jwt.RegisteredClaims

	Scopes []string `json:"scopes"`
	Role   string   `json:"role,omitempty"`
}

// ClientID returns the client the token was issued to (the first audience).
func (claims *AccessClaims) ClientID() string {
	if len(claims.Audience) == 0 {
		return ""
	}
	return claims.Audience[0]
}

// AccessTokenInput describes a token to be signed.
type AccessTokenInput struct {
	TokenID    string
	ClientID   string
	UserID     string
	Role       string
	Scopes     []string
	TimeToLive time.Duration
}

// TokenService handles generation and verification of JWT tokens using RS256.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	now        func() time.Time
}

// NewTokenService creates a new TokenService.
// It reads RSA keys from the provided filesystem paths.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return NewTokenServiceFromKeys(privateKey, publicKey, issuer), nil
}

// NewTokenServiceFromKeys creates a TokenService from already parsed keys.
func NewTokenServiceFromKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string) *TokenService {
	return &TokenService{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		now:        time.Now,
	}
}

// GenerateAccessToken signs a new access token and returns it with its expiry.
func (service *TokenService) GenerateAccessToken(input AccessTokenInput) (string, time.Time, error) {
	currentTime := service.now()
	expiresAt := currentTime.Add(input.TimeToLive)

	scopes := input.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        input.TokenID,
			Subject:   input.UserID,
			Audience:  jwt.ClaimStrings{input.ClientID},
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			NotBefore: jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Scopes: scopes,
		Role:   input.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// VerifyAccessToken checks the signature and validity of a JWT string.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.publicKey, nil
	}, jwt.WithIssuer(service.issuer), jwt.WithTimeFunc(service.now))

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
