package security

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// CandidatePassword derives the memorable candidate password: first name plus
// the organisation suffix, lowercased, alphanumerics only.
func CandidatePassword(firstName, suffix string) string {
	name := alnumLower(firstName)
	if name == "" {
		name = "candidate"
	}
	return name + alnumLower(suffix)
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func alnumLower(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
