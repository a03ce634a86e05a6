package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

const defaultAvatarSize = 200

// GravatarURL builds the Gravatar URL for email, falling back to the
// "mystery person" image for unknown addresses.
func GravatarURL(email string, size int) string {
	if size <= 0 {
		size = defaultAvatarSize
	}
	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}

// AvatarURL returns the uploaded avatar or, without one, the Gravatar for email.
func AvatarURL(uploaded, email string) string {
	if uploaded = strings.TrimSpace(uploaded); uploaded != "" {
		return uploaded
	}
	return GravatarURL(email, defaultAvatarSize)
}
