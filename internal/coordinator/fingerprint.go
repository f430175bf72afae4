package coordinator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint derives the deduplication key for a generation request from
// its identity-relevant fields. Content IDs are sorted first so the same
// document set always produces the same key regardless of request order.
func Fingerprint(ownerID string, contentIDs []string, mode string, contentLength int) string {
	ids := make([]string, len(contentIDs))
	copy(ids, contentIDs)
	sort.Strings(ids)

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d", ownerID, strings.Join(ids, ","), mode, contentLength)
	return hex.EncodeToString(h.Sum(nil))
}
