package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// HashPrefixLen is the number of hex characters of the SHA-256 digest kept
// in a chunk identifier (64 bits). By the birthday bound the collision
// probability stays below 1e-9 up to roughly 190,000 chunks with the same
// readable prefix; identifiers are not formally unique, which is why the
// ingestion pipeline checks for collisions against the manifest.
const HashPrefixLen = 16

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// NormalizeSource returns the canonical form of a source path used for
// identity: cleaned, slash separated, without a leading "./".
func NormalizeSource(source string) string {
	s := filepath.ToSlash(filepath.Clean(source))
	return strings.TrimPrefix(s, "./")
}

// ChunkID derives the stable identifier of the chunk at (source, page,
// index). It depends only on position, never on content, so re-ingesting
// an unchanged document upserts the same identifiers.
func ChunkID(source string, page, index int) string {
	source = NormalizeSource(source)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", source, page, index)))
	digest := hex.EncodeToString(sum[:])[:HashPrefixLen]

	return fmt.Sprintf("%s_p%d_c%d_%s", safeName(source), page, index, digest)
}

func safeName(source string) string {
	base := path.Base(source)
	if base == "." || base == "/" {
		base = "unknown"
	}
	return unsafeIDChars.ReplaceAllString(base, "_")
}
