package id

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns "<prefix>_<ULID>". IDs of one prefix sort by creation time.
func New(prefix string) string {
	return prefix + "_" + ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Time reports when an ID produced by New with the same prefix was minted.
func Time(prefix, s string) (time.Time, error) {
	raw, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return time.Time{}, fmt.Errorf("id %q lacks prefix %q", s, prefix)
	}
	u, err := ulid.ParseStrict(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("id %q: %w", s, err)
	}
	return ulid.Time(u.Time()), nil
}
