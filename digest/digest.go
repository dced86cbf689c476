// Package digest computes content hashes and the digital-root slot selectors the
// stack engine derives from them.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Size is the byte length of every digest produced here.
const Size = 32

const (
	AlgorithmSHA256  = "sha256"
	AlgorithmSHA3256 = "sha3-256"
)

// Hash is a hex-encoded 256-bit digest. The empty Hash marks an empty slot.
type Hash string

// IsZero reports whether h is the empty placeholder.
func (h Hash) IsZero() bool {
	return h == ""
}

// Valid reports whether h is a well-formed lowercase hex digest.
func (h Hash) Valid() bool {
	if len(h) != Size*2 {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Short returns a prefix suitable for log lines.
func (h Hash) Short() string {
	if len(h) <= 10 {
		return string(h)
	}
	return string(h[:10]) + "..."
}

func (h Hash) String() string {
	return string(h)
}

// Hasher turns arbitrary bytes into a Hash.
type Hasher interface {
	Sum(data []byte) Hash
	Name() string
}

type sha256Hasher struct{}

func (sha256Hasher) Sum(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

func (sha256Hasher) Name() string { return AlgorithmSHA256 }

type sha3Hasher struct{}

func (sha3Hasher) Sum(data []byte) Hash {
	sum := sha3.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

func (sha3Hasher) Name() string { return AlgorithmSHA3256 }

var (
	// SHA256 is the canonical engine hasher.
	SHA256 Hasher = sha256Hasher{}
	// SHA3 hashes with SHA3-256.
	SHA3 Hasher = sha3Hasher{}
)

// New returns the hasher registered under algorithm. An empty name selects SHA256.
func New(algorithm string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmSHA256:
		return SHA256, nil
	case AlgorithmSHA3256, "sha3":
		return SHA3, nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm: %s", algorithm)
	}
}

// Sum hashes data with SHA256.
func Sum(data []byte) Hash {
	return SHA256.Sum(data)
}

// SumHashes hashes the ordered concatenation of the non-empty hashes.
func SumHashes(hasher Hasher, hashes []Hash) Hash {
	var b strings.Builder
	b.Grow(len(hashes) * Size * 2)
	for _, h := range hashes {
		if h.IsZero() {
			continue
		}
		b.WriteString(string(h))
	}
	return hasher.Sum([]byte(b.String()))
}

// Address derives a hex account address from a public key with SHA3-256.
func Address(pubKey []byte) string {
	return string(SHA3.Sum(pubKey))
}

// DigitalRoot sums the value of every hex character of h, then keeps summing the
// decimal digits of the result until a single digit in [0,9] remains.
// Characters that are not hex digits are ignored.
func DigitalRoot(h Hash) int {
	sum := 0
	for i := 0; i < len(h); i++ {
		sum += hexValue(h[i])
	}
	for sum >= 10 {
		next := 0
		for sum > 0 {
			next += sum % 10
			sum /= 10
		}
		sum = next
	}
	return sum
}

// FaceSlot is the slot a hash occupies in a Face.
func FaceSlot(h Hash) int {
	return DigitalRoot(h) % 9
}

// CubeSlot is the slot a hash occupies in a Cube.
func CubeSlot(h Hash) int {
	return DigitalRoot(h) % 3
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}
