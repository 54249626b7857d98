package cookie

import (
	"net/http"
	"strings"
)

func parseLenient(raw string) []*http.Cookie {
	var out []*http.Cookie

	for part := range strings.SplitSeq(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		c, err := http.ParseCookie(part)
		if err != nil || len(c) == 0 {
			continue
		}
		out = append(out, c[0])
	}

	return out
}
