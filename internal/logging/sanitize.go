// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package logging

import (
	"strings"
	"unicode/utf8"
)

const maxLoggedValue = 200

// SanitizeValue strips control characters from client-supplied input and
// truncates it, so query parameters cannot forge log lines.
func SanitizeValue(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) > maxLoggedValue {
		cut := maxLoggedValue
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}
