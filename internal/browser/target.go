package browser

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// TargetURL turns a scenario target into a URL Chrome can open. http(s),
// file and about URLs pass through; anything else is treated as a local
// file path.
func TargetURL(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("empty target")
	}
	lower := strings.ToLower(target)
	for _, prefix := range []string{"http://", "https://", "file://", "about:"} {
		if strings.HasPrefix(lower, prefix) {
			return target, nil
		}
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
