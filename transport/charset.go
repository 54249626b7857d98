package transport

import (
	"mime"
	"strings"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/ianaindex"
)

// decodeText converts body to UTF-8 using the charset named in
// contentType. Unknown or missing charsets leave the bytes untouched.
func decodeText(body []byte, contentType string) string {
	if contentType == "" {
		return string(body)
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}

	cs := strings.ToLower(params["charset"])
	if cs == "" || strings.Contains(cs, "utf-8") || strings.Contains(cs, "utf8") {
		return string(body)
	}

	enc, _ := htmlcharset.Lookup(cs)
	if enc == nil {
		enc, err = ianaindex.MIME.Encoding(cs)
		if err != nil || enc == nil {
			return string(body)
		}
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}

	return string(out)
}
