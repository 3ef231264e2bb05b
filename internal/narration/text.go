package narration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText composes the text to NFC and collapses runs of whitespace so
// that cosmetic edits to a scenario do not invalidate cached segments.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// SegmentName returns the file name for segment index (zero based).
func SegmentName(index int, fingerprint, text, ext string) string {
	sum := sha256.Sum256([]byte(fingerprint + "\x00" + text))
	return fmt.Sprintf("seg-%03d-%s.%s", index+1, hex.EncodeToString(sum[:])[:8], strings.TrimPrefix(ext, "."))
}
