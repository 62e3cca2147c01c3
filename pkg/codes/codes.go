package codes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Length of the public cart/order codes. Short enough for URLs and support
// calls, random enough to be unguessable.
const Length = 10

// Generate returns a new opaque URL-safe code derived from the current time
// and a random UUID.
func Generate() string {
	raw := fmt.Sprintf("%s-%s", time.Now().UTC().Format(time.RFC3339Nano), uuid.NewString())
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:Length]
}
