// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AuthClientTable represents the 'auth.client' table
type AuthClientTable struct {
	Table        string
	ClientID     string
	ClientSecret string
	Scope        string
	CreatedAt    string
	UpdatedAt    string
}

// AuthClient is the schema definition for auth.client
var AuthClient = AuthClientTable{
	Table:        "auth.client",
	ClientID:     "clientid",
	ClientSecret: "clientsecret",
	Scope:        "scope",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
}

// Columns returns all standard column names
func (t AuthClientTable) Columns() []string {
	return []string{t.ClientID, t.ClientSecret, t.Scope, t.CreatedAt, t.UpdatedAt}
}
