package models

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ulidMu      sync.Mutex
	ulidEntropy io.Reader
)

func init() {
	// Seed a PRNG from crypto/rand, then wrap it in ulid.Monotonic so IDs
	// generated within the same millisecond still sort in creation order.
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ulidEntropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewTransactionID returns a ULID string. ULIDs sort lexicographically by
// creation time, so ordering the journal by ID yields chronological order
// without a separate sequence column. The ID doubles as the idempotency key
// for the append: retrying a trade re-uses the same ID and lands on the
// same row.
func NewTransactionID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), ulidEntropy)
	if err != nil {
		// Only possible if the clock runs backwards past the epoch or
		// entropy is exhausted within a single millisecond window.
		panic(err)
	}
	return id.String()
}
