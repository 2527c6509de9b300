// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns used by the SQL repositories.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table                string
	ID                   string
	Email                string
	Mobile               string
	FacebookID           string
	DrupalID             string
	Password             string
	DrupalPassword       string
	Role                 string
	FirstName            string
	LastName             string
	Birthdate            string
	Source               string
	SourceDetail         string
	ParseInstallationIDs string
	CreatedAt            string
	UpdatedAt            string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:                "users.account",
	ID:                   "id",
	Email:                "email",
	Mobile:               "mobile",
	FacebookID:           "facebookid",
	DrupalID:             "drupalid",
	Password:             "password",
	DrupalPassword:       "drupalpassword",
	Role:                 "role",
	FirstName:            "firstname",
	LastName:             "lastname",
	Birthdate:            "birthdate",
	Source:               "source",
	SourceDetail:         "sourcedetail",
	ParseInstallationIDs: "parseinstallationids",
	CreatedAt:            "createdat",
	UpdatedAt:            "updatedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Mobile, t.FacebookID, t.DrupalID, t.Password, t.DrupalPassword,
		t.Role, t.FirstName, t.LastName, t.Birthdate, t.Source, t.SourceDetail,
		t.ParseInstallationIDs, t.CreatedAt, t.UpdatedAt,
	}
}
