package session

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var recordingNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9\-]`)
var ulidEntropy = ulid.Monotonic(cryptorand.Reader, 0)

// GenerateRecordingID returns a unique recording ID using the provided base name
func GenerateRecordingID(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "recording"
	}
	base = strings.ToLower(strings.ReplaceAll(base, " ", "-"))
	base = recordingNameSanitizer.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "recording"
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
	return fmt.Sprintf("%s-%s", base, strings.ToLower(id))
}

// NewSessionKey returns a random key the agent must present to write events.
func NewSessionKey() string {
	buf := make([]byte, 16)
	if _, err := cryptorand.Read(buf); err != nil {
		// crypto/rand failure is unrecoverable for key generation
		panic(fmt.Sprintf("session key generation failed: %v", err))
	}
	return hex.EncodeToString(buf)
}
