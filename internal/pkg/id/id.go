package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, so
// broadcast ids order naturally in logs and report topics.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
