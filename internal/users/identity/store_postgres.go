// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/database/schema"
	"github.com/taibuivan/gatekeeper/internal/platform/dberr"
	"github.com/taibuivan/gatekeeper/internal/platform/postgres"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/pkg/uuid"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	db postgres.DBTX
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db postgres.DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

var (
	account = schema.UserAccount

	// userColumns selects a user with NULLs folded to empty strings.
	userColumns = fmt.Sprintf(
		"%s::text, COALESCE(%s, ''), COALESCE(%s, ''), COALESCE(%s, ''), COALESCE(%s, ''), "+
			"COALESCE(%s, ''), COALESCE(%s, ''), %s, COALESCE(%s, ''), COALESCE(%s, ''), "+
			"COALESCE(to_char(%s, 'YYYY-MM-DD'), ''), COALESCE(%s, ''), COALESCE(%s, ''), %s, %s, %s",
		account.ID, account.Email, account.Mobile, account.FacebookID, account.DrupalID,
		account.Password, account.DrupalPassword, account.Role, account.FirstName, account.LastName,
		account.Birthdate, account.Source, account.SourceDetail, account.ParseInstallationIDs,
		account.CreatedAt, account.UpdatedAt,
	)

	// indexColumns maps index fields to their column.
	indexColumns = map[string]string{
		FieldID:         account.ID,
		FieldEmail:      account.Email,
		FieldMobile:     account.Mobile,
		FieldFacebookID: account.FacebookID,
		FieldDrupalID:   account.DrupalID,
	}
)

/*
FindByIndexes returns the users matching any of the given index values.

Description: Builds one "a = $1 OR b = $2" query. An internal id that is not
a UUID can never match and is left out; when nothing is left to compare, no
query runs.

Parameters:
  - context: context.Context
  - indexes: []Index
  - limit: int

Returns:
  - []*User: Matches, possibly empty
  - error: Database failures
*/
func (repository *PostgresUserRepository) FindByIndexes(context context.Context, indexes []Index, limit int) ([]*User, error) {
	conditions := make([]string, 0, len(indexes))
	args := make([]any, 0, len(indexes))

	for _, index := range indexes {
		column, ok := indexColumns[index.Field]
		if !ok || (index.Field == FieldID && !uuid.Valid(index.Value)) {
			continue
		}
		args = append(args, index.Value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if len(conditions) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT %d",
		userColumns, account.Table, strings.Join(conditions, " OR "), limit)

	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_find_by_indexes_failed: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_user_repo_find_by_indexes_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_user_repo_find_by_indexes_failed: %w", err)
	}

	return users, nil
}

/*
FindByID retrieves a user by internal identifier.

Returns:
  - *User: Hydrated entity
  - error: apperr.NotFound or database failures
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	if !uuid.Valid(id) {
		return nil, apperr.NotFound("User")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", userColumns, account.Table, account.ID)

	user, err := scanUser(repository.db.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
Create persists a new user record into the users.account table.

Description: Assigns a UUIDv7 and timestamps when missing. Empty strings are
stored as NULL so that the partial unique indexes ignore them.

Returns:
  - error: Validation error on a taken index, or database failures
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
			NULLIF($7, ''), $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, '')::date, NULLIF($12, ''),
			NULLIF($13, ''), $14, $15, $16)`,
		account.Table, strings.Join(account.Columns(), ", "),
	)

	if user.ID == "" {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = sec.RoleUser
	}
	if user.ParseInstallationIDs == nil {
		user.ParseInstallationIDs = []string{}
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.db.Exec(context, query, user.ID, user.Email, user.Mobile, user.FacebookID,
		user.DrupalID, user.Password, user.DrupalPassword, string(user.Role), user.FirstName,
		user.LastName, user.Birthdate, user.Source, user.SourceDetail, user.ParseInstallationIDs,
		user.CreatedAt, user.UpdatedAt,
	)

	if err != nil {
		if _, taken := dberr.UniqueViolation(err); taken {
			return dberr.Wrap(err, "User")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
Update persists every mutable field of an existing user.

Returns:
  - error: apperr.NotFound, validation error on a taken index, or database failures
*/
func (repository *PostgresUserRepository) Update(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = NULLIF($2, ''), %s = NULLIF($3, ''), %s = NULLIF($4, ''), %s = NULLIF($5, ''),
			%s = NULLIF($6, ''), %s = NULLIF($7, ''), %s = $8, %s = NULLIF($9, ''), %s = NULLIF($10, ''),
			%s = NULLIF($11, '')::date, %s = NULLIF($12, ''), %s = NULLIF($13, ''), %s = $14, %s = $15, %s = $16
		WHERE %s = $1`,
		account.Table,
		account.Email, account.Mobile, account.FacebookID, account.DrupalID,
		account.Password, account.DrupalPassword, account.Role, account.FirstName, account.LastName,
		account.Birthdate, account.Source, account.SourceDetail, account.ParseInstallationIDs,
		account.CreatedAt, account.UpdatedAt,
		account.ID,
	)

	if user.ParseInstallationIDs == nil {
		user.ParseInstallationIDs = []string{}
	}
	user.UpdatedAt = time.Now()

	tag, err := repository.db.Exec(context, query, user.ID, user.Email, user.Mobile, user.FacebookID,
		user.DrupalID, user.Password, user.DrupalPassword, string(user.Role), user.FirstName,
		user.LastName, user.Birthdate, user.Source, user.SourceDetail, user.ParseInstallationIDs,
		user.CreatedAt, user.UpdatedAt,
	)

	if err != nil {
		if _, taken := dberr.UniqueViolation(err); taken {
			return dberr.Wrap(err, "User")
		}
		return fmt.Errorf("postgres_user_repo_update_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

/*
MigrateLegacyPassword swaps the legacy hash for a bcrypt hash, once.

Description: The WHERE clause is the compare half of the swap. A concurrent
writer that got there first leaves zero rows to update.

Returns:
  - bool: true when this call performed the migration
  - error: Database failures
*/
func (repository *PostgresUserRepository) MigrateLegacyPassword(context context.Context, userID, passwordHash string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = NULL, %s = NOW()
		WHERE %s = $1 AND (%s IS NULL OR %s = '') AND %s IS NOT NULL`,
		account.Table,
		account.Password, account.DrupalPassword, account.UpdatedAt,
		account.ID, account.Password, account.Password, account.DrupalPassword,
	)

	tag, err := repository.db.Exec(context, query, userID, passwordHash)
	if err != nil {
		return false, fmt.Errorf("postgres_user_repo_migrate_password_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

/*
SetDrupalID links the user to a legacy profile id.

Returns:
  - error: Validation error when another user holds the id, or database failures
*/
func (repository *PostgresUserRepository) SetDrupalID(context context.Context, userID, drupalID string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
		account.Table, account.DrupalID, account.UpdatedAt, account.ID)

	if _, err := repository.db.Exec(context, query, userID, drupalID); err != nil {
		if _, taken := dberr.UniqueViolation(err); taken {
			return dberr.Wrap(err, "User")
		}
		return fmt.Errorf("postgres_user_repo_set_drupal_id_failed: %w", err)
	}

	return nil
}

// scanUser hydrates a user from one row selected with userColumns.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	var role string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Mobile,
		&user.FacebookID,
		&user.DrupalID,
		&user.Password,
		&user.DrupalPassword,
		&role,
		&user.FirstName,
		&user.LastName,
		&user.Birthdate,
		&user.Source,
		&user.SourceDetail,
		&user.ParseInstallationIDs,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = sec.UserRole(role)
	return user, nil
}
