package urlnorm

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		base string
		want string
	}{
		{name: "adds https scheme", raw: "example.com/docs", want: "https://example.com/docs"},
		{name: "protocol relative", raw: "//example.com/docs", want: "https://example.com/docs"},
		{name: "root path added", raw: "https://example.com", want: "https://example.com/"},
		{name: "root slash kept", raw: "https://example.com/", want: "https://example.com/"},
		{name: "trailing slash stripped", raw: "https://example.com/docs/", want: "https://example.com/docs"},
		{name: "fragment dropped", raw: "https://example.com/docs#intro", want: "https://example.com/docs"},
		{name: "utm parameters dropped", raw: "https://example.com/a?utm_source=x&UTM_Medium=y", want: "https://example.com/a"},
		{name: "click ids dropped", raw: "https://example.com/a?gclid=1&fbclid=2&mc_cid=3&mc_eid=4&id=7", want: "https://example.com/a?id=7"},
		{name: "query sorted", raw: "https://example.com/s?b=2&a=1&a=0", want: "https://example.com/s?a=0&a=1&b=2"},
		{name: "blank values kept", raw: "https://example.com/s?q=", want: "https://example.com/s?q="},
		{name: "host lower-cased", raw: "https://EXAMPLE.com/Docs", want: "https://example.com/Docs"},
		{name: "https default port dropped", raw: "HTTPS://Example.com:443/a/", want: "https://example.com/a"},
		{name: "http default port dropped", raw: "http://example.com:80/", want: "http://example.com/"},
		{name: "other ports kept", raw: "http://example.com:8080/a", want: "http://example.com:8080/a"},
		{name: "https port on http kept", raw: "http://example.com:443/a", want: "http://example.com:443/a"},
		{name: "relative resolved", raw: "../b/", base: "https://example.com/a/c/", want: "https://example.com/a/b"},
		{name: "absolute path resolved", raw: "/page-2", base: "https://example.com/", want: "https://example.com/page-2"},
		{name: "fragment-only link", raw: "#top", base: "https://example.com/docs", want: "https://example.com/docs"},
		{name: "empty input", raw: "", want: ""},
		{name: "unparsable input", raw: "https://exa mple.com/%zz", want: ""},
		{name: "mailto kept opaque", raw: "mailto:team@example.com", want: "mailto:team@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.raw, tt.base); got != tt.want {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.raw, tt.base, got, tt.want)
			}
		})
	}
}

// TestNormalizeEquivalence checks that URLs differing only by fragment or
// tracking parameters share one canonical form.
func TestNormalizeEquivalence(t *testing.T) {
	t.Parallel()

	variants := []string{
		"https://example.com/guide?page=2",
		"https://example.com/guide?page=2#section",
		"https://example.com/guide/?page=2&utm_campaign=spring",
		"https://example.com/guide?gclid=abc&page=2",
		"example.com/guide?page=2&fbclid=zzz#x",
	}

	want := Normalize(variants[0], "")
	for _, v := range variants[1:] {
		if got := Normalize(v, ""); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"https://example.com/a/b/?z=1&y=2#f",
		"http://example.com",
		"https://example.com/caf%C3%A9/",
	} {
		once := Normalize(raw, "")
		if twice := Normalize(once, ""); twice != once {
			t.Errorf("not idempotent: %q -> %q", once, twice)
		}
	}
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	if got := Hostname("https://Docs.Example.com:8443/x"); got != "docs.example.com" {
		t.Errorf("expected docs.example.com, got %q", got)
	}
	if got := PathWithQuery("https://example.com"); got != "/" {
		t.Errorf("expected /, got %q", got)
	}
	if got := PathWithQuery("https://example.com/a?b=1"); got != "/a?b=1" {
		t.Errorf("expected /a?b=1, got %q", got)
	}
	if got := Origin("http://example.com:8080/robots"); got != "http://example.com:8080" {
		t.Errorf("unexpected origin %q", got)
	}
	if got := Origin("/relative"); got != "" {
		t.Errorf("expected empty origin, got %q", got)
	}
}
