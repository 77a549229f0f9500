package prefs

import (
	"fmt"

	"github.com/starford/sowilo/internal/apperr"
)

// ErrStale is returned by Save when the caller's checksum is out of date.
var ErrStale = fmt.Errorf("preferences changed since they were read: %w", apperr.ErrConflict)
