// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"strings"
	"unicode"

	"github.com/pquerna/otp/totp"
)

// CodeLooksValid reports whether the input has the shape of a TOTP code
// (six digits). Checked locally before any network call so typos never cost
// a round-trip.
func CodeLooksValid(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// SelfCheckCode verifies a TOTP code against the enrolment secret the
// backend handed out during setup. Used during enrolment to confirm the
// authenticator app was provisioned correctly before calling confirm-2fa.
func SelfCheckCode(code, secret string) bool {
	return totp.Validate(strings.TrimSpace(code), secret)
}
