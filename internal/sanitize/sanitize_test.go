package sanitize

import (
	"regexp"
	"strings"
	"testing"
)

func TestBio(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text untouched",
			in:   "hello world",
			want: "hello world",
		},
		{
			name: "allowed tags kept",
			in:   "<p>Hi <strong>there</strong> <em>friend</em> <u>ok</u><br/></p>",
			want: "<p>Hi <strong>there</strong> <em>friend</em> <u>ok</u><br/></p>",
		},
		{
			name: "script removed entirely",
			in:   "<script>alert(1)</script><p>Hello</p>",
			want: "<p>Hello</p>",
		},
		{
			name: "style content removed",
			in:   "<style>p{color:red}</style><p>x</p>",
			want: "<p>x</p>",
		},
		{
			name: "attributes stripped from allowed tags",
			in:   `<p onclick="evil()" class="x">hi</p>`,
			want: "<p>hi</p>",
		},
		{
			name: "event handler vectors removed",
			in:   `<img src=x onerror=alert(1)><p>ok</p>`,
			want: "<p>ok</p>",
		},
		{
			name: "disallowed wrapper stripped, text kept",
			in:   "<div><p>kept</p></div>",
			want: "<p>kept</p>",
		},
		{
			name: "anchor stripped including href",
			in:   `<a href="javascript:alert(1)">click</a>`,
			want: "click",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bio(tt.in); got != tt.want {
				t.Errorf("Bio(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func TestBioNeverEmitsDisallowedTagsOrAttributes(t *testing.T) {
	inputs := []string{
		`<script>document.cookie</script>`,
		`<SCRIPT SRC=//evil.example></SCRIPT>`,
		`<iframe src="https://evil.example"></iframe>`,
		`<p><p><p>nested<strong><em>deep`,
		`<svg/onload=alert(1)>`,
		`<p style="position:fixed">x</p>`,
		`<<p>broken<</strong>`,
		`<u onmouseover="x">u</u><object data="x"></object>`,
	}
	allowed := map[string]bool{"p": true, "strong": true, "em": true, "u": true, "br": true}

	for _, in := range inputs {
		out := Bio(in)
		for _, tag := range tagPattern.FindAllString(out, -1) {
			name := strings.Trim(tag, "<>/")
			name = strings.TrimSuffix(strings.TrimSpace(name), "/")
			if !allowed[strings.ToLower(name)] {
				t.Errorf("Bio(%q) emitted disallowed tag %q in %q", in, tag, out)
			}
			if strings.ContainsAny(tag, "= ") {
				t.Errorf("Bio(%q) emitted tag with attributes %q in %q", in, tag, out)
			}
		}
	}
}

func TestBioIdempotent(t *testing.T) {
	inputs := []string{
		"<p>Hello</p>",
		"<script>alert(1)</script><p>Hello</p>",
		"<div><strong>a</strong><em>b</em></div>",
		"plain",
		`<p onclick="x">y</p><br>`,
	}
	for _, in := range inputs {
		once := Bio(in)
		twice := Bio(once)
		if once != twice {
			t.Errorf("Bio not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
