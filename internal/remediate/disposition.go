package remediate

import (
	"fmt"
	"strings"
)

// DispositionKind says whether a browser should render the object or offer it
// as a download.
type DispositionKind string

const (
	DispositionInline     DispositionKind = "inline"
	DispositionAttachment DispositionKind = "attachment"
)

// Decision is the fully formed Content-Disposition target for one object.
type Decision struct {
	Kind        DispositionKind
	HeaderValue string
}

// Decide maps a content type to its target Content-Disposition. Images render
// inline, everything else (including a missing content type) downloads as an
// attachment. Pure function.
func Decide(contentType, filename string) Decision {
	kind := DispositionAttachment
	if strings.HasPrefix(contentType, "image/") {
		kind = DispositionInline
	}
	return Decision{
		Kind:        kind,
		HeaderValue: fmt.Sprintf("%s; filename=%s", kind, quoteFilename(filename)),
	}
}

// quoteFilename produces an RFC 6266 quoted-string. Backslash and double
// quote are escaped with a quoted-pair and round-trip exactly. Control
// characters have no representation inside a single-line header value, so
// they are substituted with a space; a filename containing them comes back
// altered.
func quoteFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 2)
	b.WriteByte('"')
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
