package postgres

import (
	"errors"
	"fmt"

	"github.com/segmentio/ksuid"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Session ids are ksuids, which sort by creation time, so the id of the
// last row on a page is the whole cursor.

func EncodeCursor(lastID string) string {
	return lastID
}

// DecodeCursor returns "" for the first page.
func DecodeCursor(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	id, err := ksuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return id.String(), nil
}
