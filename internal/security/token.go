package security

import (
	"crypto/rand"
	"encoding/hex"
)

const stageTokenBytes = 24

// NewStageToken returns an unguessable 48-character hex token.
func NewStageToken() (string, error) {
	seed := make([]byte, stageTokenBytes)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}
	return hex.EncodeToString(seed), nil
}
