package utils

import (
	"strings"

	"github.com/google/uuid"
)

// IsUUID reports whether str is a well formed id. Route handlers use it to
// answer NotFound for malformed ids before touching the store.
func IsUUID(str string) bool {
	_, err := uuid.Parse(strings.TrimSpace(str))
	return err == nil
}

// UsernameFromEmail derives the default username from the email local part.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}
