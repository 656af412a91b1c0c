package kvstore

import (
	"fmt"

	"github.com/BradenHooton/loginguard/internal/models"
)

// ErrCorrupt reports an entry that exists but cannot be decoded
func ErrCorrupt(key string) error {
	return fmt.Errorf("kvstore: key %q: %w", key, models.ErrCorruptEntry)
}
