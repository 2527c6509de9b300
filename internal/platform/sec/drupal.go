// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// # Legacy Drupal Hashes
//
// Accounts imported from the Drupal site carry phpass-style hashes:
//
//	$S$ + count + salt(8) + base64(sha512 chain)   Drupal 7
//	$H$ / $P$ + count + salt(8) + base64(md5 chain)  phpass
//	U$S$...                                          Drupal 6 md5 hashes re-hashed by Drupal 7

const (
	drupalItoa64       = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	drupalHashLength   = 55
	drupalSettingLen   = 12
	drupalMinHashCount = 7
	drupalMaxHashCount = 30

	// DrupalDefaultHashCount is the log2 iteration count Drupal 7 ships with.
	DrupalDefaultHashCount = 15
)

// CheckDrupalPassword reports whether the plaintext matches a stored Drupal hash.
func CheckDrupalPassword(plainTextPassword, storedHash string) bool {
	if storedHash == "" {
		return false
	}

	// Drupal 6 hashes were md5'd once before being wrapped in the Drupal 7 scheme
	if strings.HasPrefix(storedHash, "U$") {
		storedHash = storedHash[1:]
		sum := md5.Sum([]byte(plainTextPassword))
		plainTextPassword = hex.EncodeToString(sum[:])
	}

	if len(storedHash) < drupalSettingLen {
		return false
	}

	var newHash func() hash.Hash
	switch storedHash[:3] {
	case "$S$":
		newHash = sha512.New
	case "$H$", "$P$":
		newHash = md5.New
	default:
		return false
	}

	computed, ok := drupalCrypt(newHash, plainTextPassword, storedHash)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// HashDrupalPassword produces a Drupal 7 "$S$" hash with a random salt.
//
// Only fixtures and imports need this; new passwords are always bcrypt.
func HashDrupalPassword(plainTextPassword string, countLog2 int) (string, error) {
	if countLog2 < drupalMinHashCount || countLog2 > drupalMaxHashCount {
		return "", fmt.Errorf("sec: drupal hash count %d out of range", countLog2)
	}

	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	for i := range salt {
		salt[i] = drupalItoa64[int(salt[i])&0x3f]
	}

	setting := "$S$" + string(drupalItoa64[countLog2]) + string(salt)
	computed, ok := drupalCrypt(sha512.New, plainTextPassword, setting)
	if !ok {
		return "", fmt.Errorf("sec: failed to compute drupal hash")
	}
	return computed, nil
}

// drupalCrypt runs the iterated phpass digest for the given setting.
func drupalCrypt(newHash func() hash.Hash, password, setting string) (string, bool) {
	if len(setting) < drupalSettingLen {
		return "", false
	}
	setting = setting[:drupalSettingLen]
	if setting[0] != '$' || setting[2] != '$' {
		return "", false
	}

	countLog2 := strings.IndexByte(drupalItoa64, setting[3])
	if countLog2 < drupalMinHashCount || countLog2 > drupalMaxHashCount {
		return "", false
	}

	salt := setting[4:12]
	count := 1 << countLog2

	digest := newHash()
	digest.Write([]byte(salt + password))
	sum := digest.Sum(nil)

	for i := 0; i < count; i++ {
		digest.Reset()
		digest.Write(sum)
		digest.Write([]byte(password))
		sum = digest.Sum(nil)
	}

	output := setting + drupalBase64(sum)
	expected := drupalSettingLen + (8*len(sum)+5)/6
	if len(output) != expected {
		return "", false
	}
	if len(output) > drupalHashLength {
		output = output[:drupalHashLength]
	}
	return output, true
}

// drupalBase64 is the little-endian base64 variant used by phpass.
func drupalBase64(input []byte) string {
	count := len(input)
	var out strings.Builder

	i := 0
	for {
		value := int(input[i])
		i++
		out.WriteByte(drupalItoa64[value&0x3f])
		if i < count {
			value |= int(input[i]) << 8
		}
		out.WriteByte(drupalItoa64[(value>>6)&0x3f])
		if i >= count {
			break
		}
		i++

		if i < count {
			value |= int(input[i]) << 16
		}
		out.WriteByte(drupalItoa64[(value>>12)&0x3f])
		if i >= count {
			break
		}
		i++

		out.WriteByte(drupalItoa64[(value>>18)&0x3f])
		if i >= count {
			break
		}
	}

	return out.String()
}
