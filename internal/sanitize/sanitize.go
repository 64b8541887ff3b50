// Package sanitize reduces rich-text bio input to a safe allow-listed HTML subset.
package sanitize

import "github.com/microcosm-cc/bluemonday"

// bioPolicy permits p, strong, em, u and br with no attributes. Everything
// else is stripped; script and style contents are removed entirely.
var bioPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "strong", "em", "u", "br")
	return p
}()

// Bio sanitizes raw rich-text HTML down to the allowed tag subset.
// The result is stable under repeated application.
func Bio(raw string) string {
	return bioPolicy.Sanitize(raw)
}
