package util

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jgivc/archives/internal/common"
)

// EncodeID returns the opaque identifier of an archive directory name.
func EncodeID(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}

// DecodeID reverses EncodeID. Anything that could not have been produced
// from a directory name is reported as common.ErrInvalidID.
func DecodeID(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("empty id: %w", common.ErrInvalidID)
	}

	data, err := base64.RawURLEncoding.Strict().DecodeString(id)
	if err != nil {
		return "", fmt.Errorf("cannot decode id %q: %w", id, common.ErrInvalidID)
	}

	name := string(data)
	if name == "" || strings.ContainsAny(name, "/\\\x00") {
		return "", fmt.Errorf("id %q is not a directory name: %w", id, common.ErrInvalidID)
	}

	return name, nil
}
