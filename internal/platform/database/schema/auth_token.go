// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AuthAccessTokenTable represents the 'auth.access_token' table
type AuthAccessTokenTable struct {
	Table     string
	ID        string
	ClientID  string
	UserID    string
	Scopes    string
	ExpiresAt string
	CreatedAt string
}

// AuthAccessToken is the schema definition for auth.access_token
var AuthAccessToken = AuthAccessTokenTable{
	Table:     "auth.access_token",
	ID:        "id",
	ClientID:  "clientid",
	UserID:    "userid",
	Scopes:    "scopes",
	ExpiresAt: "expiresat",
	CreatedAt: "createdat",
}

// AuthRefreshTokenTable represents the 'auth.refresh_token' table
type AuthRefreshTokenTable struct {
	Table         string
	ID            string
	AccessTokenID string
	ClientID      string
	UserID        string
	Scopes        string
	ExpiresAt     string
	CreatedAt     string
}

// AuthRefreshToken is the schema definition for auth.refresh_token
var AuthRefreshToken = AuthRefreshTokenTable{
	Table:         "auth.refresh_token",
	ID:            "id",
	AccessTokenID: "accesstokenid",
	ClientID:      "clientid",
	UserID:        "userid",
	Scopes:        "scopes",
	ExpiresAt:     "expiresat",
	CreatedAt:     "createdat",
}
