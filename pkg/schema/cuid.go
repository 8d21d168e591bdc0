package schema

import (
	"crypto/rand"
	"encoding/base32"
	"strings"

	"github.com/cuemby/corestore/pkg/corestore"
)

// newCUID produces a collision-resistant, lexically sortable id: a
// millisecond timestamp prefix (for the "ordered"-bucket case) followed by
// random entropy, base32-encoded. It is not the canonical cuid2 algorithm —
// no pack example vendors one — but follows the same "sortable timestamp +
// randomness" shape.
func newCUID() string {
	var buf [10]byte
	_, _ = rand.Read(buf[:])
	enc := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf[:]))
	return "c" + itoa36(corestore.NowMillis()) + enc
}

func itoa36(n int64) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "0"
	}
	var out []byte
	for n > 0 {
		out = append([]byte{digits[n%36]}, out...)
		n /= 36
	}
	return string(out)
}
