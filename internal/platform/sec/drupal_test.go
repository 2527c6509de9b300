// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

/*
TestDrupalPassword_RoundTrip verifies that generated Drupal 7 hashes verify
against the same plaintext and nothing else.
*/
func TestDrupalPassword_RoundTrip(t *testing.T) {
	hash, err := sec.HashDrupalPassword("hunter2", 7)
	require.NoError(t, err)

	assert.Len(t, hash, 55)
	assert.True(t, strings.HasPrefix(hash, "$S$5"))

	assert.True(t, sec.CheckDrupalPassword("hunter2", hash))
	assert.False(t, sec.CheckDrupalPassword("hunter3", hash))
	assert.False(t, sec.CheckDrupalPassword("", hash))
}

// drupalHunter2 is a Drupal 7 hash of "hunter2" with salt "abcdefgH" and 2^15 rounds.
const drupalHunter2 = "$S$DabcdefgHd3338dE34ileisFl7VsBzShbnWck.KQWnuscx4CQ37t"

/*
TestCheckDrupalPassword_KnownHash verifies a hash produced outside this package.
*/
func TestCheckDrupalPassword_KnownHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		hash     string
		expected bool
	}{
		{"matching_password", "hunter2", drupalHunter2, true},
		{"wrong_password", "Hunter2", drupalHunter2, false},
		{"truncated_hash", "hunter2", drupalHunter2[:40], false},
		{"tampered_digest", "hunter2", drupalHunter2[:54] + "u", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sec.CheckDrupalPassword(tt.password, tt.hash))
		})
	}
}

/*
TestDrupalPassword_DefaultCount verifies the iteration count Drupal ships with.
*/
func TestDrupalPassword_DefaultCount(t *testing.T) {
	hash, err := sec.HashDrupalPassword("correct horse", sec.DrupalDefaultHashCount)
	require.NoError(t, err)

	assert.Equal(t, "$S$D", hash[:4])
	assert.True(t, sec.CheckDrupalPassword("correct horse", hash))
}

/*
TestDrupalPassword_UpgradedMD5 verifies "U$" hashes, which wrap the md5 of the
plaintext.
*/
func TestDrupalPassword_UpgradedMD5(t *testing.T) {
	sum := md5.Sum([]byte("secret"))
	inner, err := sec.HashDrupalPassword(hex.EncodeToString(sum[:]), 7)
	require.NoError(t, err)

	assert.True(t, sec.CheckDrupalPassword("secret", "U"+inner))
	assert.False(t, sec.CheckDrupalPassword("other", "U"+inner))
}

/*
TestDrupalPassword_Malformed verifies that malformed hashes never match.
*/
func TestDrupalPassword_Malformed(t *testing.T) {
	valid, err := sec.HashDrupalPassword("pw", 7)
	require.NoError(t, err)

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"short", "$S$D"},
		{"unknown prefix", "$X$" + valid[3:]},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuu7h1eR3u7QpY0c9WQv0m8b2mC5K6n7a"},
		{"count too low", "$S$" + "." + valid[4:]},
		{"count too high", "$S$" + "z" + valid[4:]},
		{"truncated", valid[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, sec.CheckDrupalPassword("pw", tt.hash))
		})
	}
}

/*
TestHashDrupalPassword_CountRange verifies that out of range iteration counts are rejected.
*/
func TestHashDrupalPassword_CountRange(t *testing.T) {
	_, err := sec.HashDrupalPassword("pw", 6)
	assert.Error(t, err)

	_, err = sec.HashDrupalPassword("pw", 31)
	assert.Error(t, err)
}
