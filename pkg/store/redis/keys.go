package redis

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidKey is returned for key parts that cannot be used in a Redis key.
var ErrInvalidKey = errors.New("redis: invalid key")

const maxKeyLength = 250

// keySpace builds the keys owned by this service under a common prefix.
type keySpace struct {
	prefix string
}

func (k keySpace) snapshot() string {
	return k.prefix + "transactions:snapshot"
}

func (k keySpace) conversations(userID string) (string, error) {
	if err := validatePart(userID); err != nil {
		return "", err
	}
	key := k.prefix + "conversations:" + userID
	if len(key) > maxKeyLength {
		return "", fmt.Errorf("%w: key too long (max %d characters)", ErrInvalidKey, maxKeyLength)
	}
	return key, nil
}

// validatePart rejects empty parts, control characters and surrounding
// whitespace.
func validatePart(part string) error {
	if part == "" {
		return ErrInvalidKey
	}
	for _, r := range part {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: key contains control character", ErrInvalidKey)
		}
	}
	if strings.TrimSpace(part) != part {
		return fmt.Errorf("%w: key has leading or trailing whitespace", ErrInvalidKey)
	}
	return nil
}
