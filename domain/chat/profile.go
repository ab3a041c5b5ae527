package chat

import (
	"fmt"
	"strings"
	"unicode"
)

// Profile is the display identity of an author. It is read-only from
// the chat core's perspective and owned by the identity store.
type Profile struct {
	ID        string
	Username  string
	AvatarURL string
}

const fallbackLabel = "User"

// DefaultProfile builds the deterministic placeholder identity used when
// an author has no stored profile. The placeholder avatar is keyed by the
// first letter of the fallback label, so rendering never blocks on a miss.
func DefaultProfile(id string) Profile {
	return Profile{
		ID:        id,
		Username:  fallbackLabel,
		AvatarURL: placeholderAvatar(fallbackLabel),
	}
}

// WithDefaults fills the missing parts of a stored profile.
func (p Profile) WithDefaults() Profile {
	if strings.TrimSpace(p.Username) == "" {
		p.Username = fallbackLabel
	}
	if strings.TrimSpace(p.AvatarURL) == "" {
		p.AvatarURL = placeholderAvatar(p.Username)
	}
	return p
}

func placeholderAvatar(label string) string {
	initial := []rune(fallbackLabel)[0]
	if r := []rune(label); len(r) > 0 {
		initial = r[0]
	}
	return fmt.Sprintf("https://placehold.co/80x80/000/fff?text=%c", unicode.ToUpper(initial))
}
