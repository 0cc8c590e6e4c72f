// Package extids provides identifier generators: UUID v4 and v7, ULID and
// NanoID.
package extids

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid"

	"github.com/sandrolain/celfx/pkg/functions"
)

const (
	nanoidSize    = 21
	maxNanoidSize = 256
)

// All returns all identifier function descriptors.
func All() []functions.Descriptor {
	return []functions.Descriptor{
		UUID(),
		UUIDv7(),
		ULID(),
		ULIDTimestamp(),
		NanoID(),
	}
}

func leaf(name, sig, desc, example string, fn functions.LeafFunc) functions.Descriptor {
	return functions.Descriptor{
		Name:        name,
		Category:    functions.CategoryIDs,
		Signature:   sig,
		Description: desc,
		Example:     example,
		Leaf:        fn,
	}
}

// UUID returns the descriptor for uuid().
func UUID() functions.Descriptor {
	return leaf("uuid", "<:s>", "Random version 4 UUID", `uuid() -> "3b241101-e2bb-4255-8caf-4136c566a962"`,
		func(args ...any) (any, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		})
}

// UUIDv7 returns the descriptor for uuid_v7().
func UUIDv7() functions.Descriptor {
	return leaf("uuid_v7", "<:s>", "Time-ordered version 7 UUID", `uuid_v7() -> "018f..."`,
		func(args ...any) (any, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		})
}

// ULID returns the descriptor for ulid().
func ULID() functions.Descriptor {
	return leaf("ulid", "<:s>", "Lexicographically sortable identifier", `ulid() -> "01ARZ3NDEKTSV4RRFFQ69G5FAV"`,
		func(args ...any) (any, error) {
			id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		})
}

// ULIDTimestamp returns the descriptor for ulid_timestamp(id).
// Returns the embedded creation time in epoch milliseconds.
func ULIDTimestamp() functions.Descriptor {
	return leaf("ulid_timestamp", "<s:n>", "Epoch milliseconds embedded in a ULID, null when invalid",
		`ulid_timestamp("01ARZ3NDEKTSV4RRFFQ69G5FAV") -> 1469918176385`,
		func(args ...any) (any, error) {
			id, err := ulid.Parse(args[0].(string))
			if err != nil {
				return nil, nil
			}
			return float64(id.Time()), nil
		})
}

// NanoID returns the descriptor for nanoid([size]).
func NanoID() functions.Descriptor {
	return leaf("nanoid", "<n?:s>", "URL-safe random identifier, 21 characters by default", `nanoid(10) -> "V1StGXR8_Z"`,
		func(args ...any) (any, error) {
			size := nanoidSize
			if len(args) > 0 && args[0] != nil {
				size = int(args[0].(float64))
			}
			if size < 1 || size > maxNanoidSize {
				return nil, fmt.Errorf("size must be between 1 and %d, got %d", maxNanoidSize, size)
			}
			return gonanoid.New(size)
		})
}
