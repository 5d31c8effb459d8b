// Package ids generates the opaque 32-character hex identifiers used by
// every entity in the system.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
