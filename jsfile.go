package opvault

import (
	"fmt"
	"strings"
)

// stripFrame removes the literal JavaScript host framing around a vault
// file's JSON payload — "var profile=…;", "loadFolders(…);", "ld(…);" —
// and returns the payload. The frame is matched exactly, never evaluated:
// these files are shaped for a JS engine but feeding them to one would be
// an unforced security hole. Surrounding whitespace is tolerated because
// some writers end the file with a newline.
func stripFrame(raw []byte, prefix, suffix string) ([]byte, error) {
	s := strings.TrimSpace(string(raw))
	body, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return nil, fmt.Errorf("opvault: missing %q frame prefix", prefix)
	}
	body, ok = strings.CutSuffix(body, suffix)
	if !ok {
		return nil, fmt.Errorf("opvault: missing %q frame suffix", suffix)
	}
	return []byte(body), nil
}
