package stream

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

// Digest identifies the exact bytes of an encoded document.
type Digest struct {
	SHA256 [32]byte
	CRC32  uint32
}

// DigestBytes computes the digest of raw bytes.
func DigestBytes(data []byte) Digest {
	return Digest{SHA256: sha256.Sum256(data), CRC32: crc32.ChecksumIEEE(data)}
}

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// String renders "sha256:<hex> crc32:<hex>".
func (d Digest) String() string {
	return fmt.Sprintf("sha256:%s crc32:%08x", hex.EncodeToString(d.SHA256[:]), d.CRC32)
}

// ParseDigest parses the output of Digest.String. Hex digits may be in
// either case.
func ParseDigest(s string) (Digest, bool) {
	sum, crc, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return Digest{}, false
	}
	sum, ok = strings.CutPrefix(sum, "sha256:")
	if !ok {
		return Digest{}, false
	}
	crc, ok = strings.CutPrefix(crc, "crc32:")
	if !ok || len(crc) != 8 {
		return Digest{}, false
	}
	raw, err := hex.DecodeString(sum)
	if err != nil || len(raw) != sha256.Size {
		return Digest{}, false
	}
	c, err := strconv.ParseUint(crc, 16, 32)
	if err != nil {
		return Digest{}, false
	}
	var d Digest
	copy(d.SHA256[:], raw)
	d.CRC32 = uint32(c)
	return d, true
}
