package cookie_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/xhr/cookie"
)

func TestFromString(t *testing.T) {
	testCases := map[string]struct {
		raw      string
		expected cookie.Static
	}{
		"empty": {
			raw:      "",
			expected: cookie.Static{},
		},
		"pairs": {
			raw:      "XSRF-TOKEN=abc; theme=dark",
			expected: cookie.Static{"XSRF-TOKEN": "abc", "theme": "dark"},
		},
		"quoted": {
			raw:      `id="42"`,
			expected: cookie.Static{"id": "42"},
		},
		"malformedPairSkipped": {
			raw:      "good=1; bad pair; also=2",
			expected: cookie.Static{"good": "1", "also": "2"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := cookie.FromString(tc.raw)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("cookies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReaderFunc(t *testing.T) {
	var asked string
	r := cookie.ReaderFunc(func(name string) (string, bool) {
		asked = name
		return "v", true
	})

	if v, ok := r.Read("n"); !ok || v != "v" || asked != "n" {
		t.Errorf("Read = (%q, %t), asked %q", v, ok, asked)
	}
}

func TestJar(t *testing.T) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating jar: %v", err)
	}

	app, _ := url.Parse("https://app.example.com/")
	jar.SetCookies(app, []*http.Cookie{{Name: "XSRF-TOKEN", Value: "jar-token"}})

	other, _ := url.Parse("https://other.example.com/")
	jar.SetCookies(other, []*http.Cookie{{Name: "foreign", Value: "x"}})

	r, err := cookie.NewJar(jar, "https://app.example.com/page")
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	if v, ok := r.Read("XSRF-TOKEN"); !ok || v != "jar-token" {
		t.Errorf("Read(XSRF-TOKEN) = (%q, %t)", v, ok)
	}
	if _, ok := r.Read("foreign"); ok {
		t.Error("read a cookie scoped to another host")
	}
}

func TestNewJar_Validation(t *testing.T) {
	if _, err := cookie.NewJar(nil, "https://app.example.com"); err == nil {
		t.Error("expected error for nil jar")
	}

	jar, _ := cookiejar.New(nil)
	if _, err := cookie.NewJar(jar, "http://[::1"); err == nil {
		t.Error("expected error for unparsable url")
	}
}
