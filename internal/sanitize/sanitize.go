// internal/sanitize
// -----------------
// Strips markup from payload strings before they leave the process and after
// they arrive from the backend. No tag or attribute is allowed through;
// script and style bodies are dropped together with their tags.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/opengovern/secure-bridge/jsonvalue"
)

var (
	strict = bluemonday.StrictPolicy()

	// bluemonday escapes quotes and ampersands in text it keeps. Undo only
	// those so plain data round-trips; &lt; and &gt; stay escaped.
	unquote = strings.NewReplacer("&#39;", "'", "&#34;", `"`, "&quot;", `"`, "&amp;", "&")
)

// String returns s with every HTML tag and attribute removed.
func String(s string) string {
	if !strings.ContainsAny(s, "<>&'\"") {
		return s
	}
	return unquote.Replace(strict.Sanitize(s))
}

// Value returns a copy of v with String applied to every string leaf and
// every object key. Keys that collapse onto the same stripped key keep a
// single entry; see jsonvalue.MapKeysAndStrings for which one.
func Value(v jsonvalue.Value) jsonvalue.Value {
	return jsonvalue.MapKeysAndStrings(v, String, String)
}
