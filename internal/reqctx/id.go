package reqctx

import (
	"strings"

	"github.com/google/uuid"
)

// MaxRequestIDLength bounds forwarded identifiers so a client cannot inflate every log line.
const MaxRequestIDLength = 128

func NewRequestID() string {
	return uuid.New().String()
}

// NormalizeRequestID returns the forwarded id when it is usable as an opaque token,
// and false when a new one should be generated instead.
func NormalizeRequestID(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > MaxRequestIDLength {
		return "", false
	}

	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return "", false
		}
	}

	return id, true
}
