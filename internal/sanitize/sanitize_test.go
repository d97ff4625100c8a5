package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/opengovern/secure-bridge/jsonvalue"
)

func TestStringStripsMarkup(t *testing.T) {
	cases := map[string]string{
		"plain":                                 "plain",
		"<b>bold</b> text":                      "bold text",
		`<script>alert("x")</script>Hello`:      "Hello",
		`<img src=x onerror="alert(1)">`:        "",
		`<a href="javascript:evil()">click</a>`: "click",
		"O'Brien & Sons":                        "O'Brien & Sons",
		`say "hi"`:                              `say "hi"`,
		"<style>body{}</style>ok":               "ok",
	}
	for in, want := range cases {
		assert.Equal(t, want, String(in), "input %q", in)
	}
}

func TestStringNeverEmitsAngleBrackets(t *testing.T) {
	assert.NotContains(t, String("a < b"), "<")
	assert.NotContains(t, String("&lt;script&gt;"), "<")
	assert.NotContains(t, String("&amp;lt;b&amp;gt;"), "<")
}

func TestValueSanitizesNestedLeaves(t *testing.T) {
	in := jsonvalue.Object{
		"note": jsonvalue.String("<b>hi</b>"),
		"items": jsonvalue.Array{
			jsonvalue.Object{"label": jsonvalue.String("<i>x</i>"), "qty": jsonvalue.Number("2")},
		},
		"active": jsonvalue.Bool(true),
	}
	out := Value(in).(jsonvalue.Object)

	assert.Equal(t, jsonvalue.String("hi"), out["note"])
	item := out["items"].(jsonvalue.Array)[0].(jsonvalue.Object)
	assert.Equal(t, jsonvalue.String("x"), item["label"])
	assert.Equal(t, jsonvalue.Number("2"), item["qty"])
	assert.Equal(t, jsonvalue.Bool(true), out["active"])
}

func genMarkup() *rapid.Generator[string] {
	fragments := []string{
		"<script>", "</script>", "<b>", "</b>", "<img src=x onerror=alert(1)>",
		"<div class=\"a\">", "</div>", "<!-- c -->", "<", ">", "&lt;", "&amp;",
		"text", " ", "'", "\"", "<svg/onload=alert(1)>", "<a href='#'>",
	}
	return rapid.Custom(func(t *rapid.T) string {
		parts := rapid.SliceOfN(rapid.SampledFrom(fragments), 0, 12).Draw(t, "parts")
		return strings.Join(parts, "")
	})
}

func genValue(depth int) *rapid.Generator[jsonvalue.Value] {
	return rapid.Custom(func(t *rapid.T) jsonvalue.Value {
		choice := rapid.IntRange(0, 5).Draw(t, "choice")
		if depth <= 0 && choice >= 4 {
			choice = 3
		}
		switch choice {
		case 0:
			return jsonvalue.Null{}
		case 1:
			return jsonvalue.Bool(rapid.Bool().Draw(t, "bool"))
		case 2:
			return jsonvalue.Number("42")
		case 3:
			return jsonvalue.String(genMarkup().Draw(t, "string"))
		case 4:
			return jsonvalue.Array(rapid.SliceOfN(genValue(depth-1), 0, 4).Draw(t, "array"))
		default:
			return jsonvalue.Object(rapid.MapOfN(genKey(), genValue(depth-1), 0, 4).Draw(t, "object"))
		}
	})
}

func TestValueLeavesNoTagsAtAnyDepth(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := genValue(4).Draw(t, "value")
		out := Value(v)
		jsonvalue.Strings(out, func(s string) {
			if strings.ContainsRune(s, '<') {
				t.Fatalf("markup survived sanitization: %q", s)
			}
		})
		objectKeys(out, func(k string) {
			if strings.ContainsRune(k, '<') {
				t.Fatalf("markup survived in object key: %q", k)
			}
		})
	})
}

func genKey() *rapid.Generator[string] {
	return rapid.OneOf(rapid.StringMatching(`[a-z]{1,6}`), genMarkup())
}

func objectKeys(v jsonvalue.Value, fn func(string)) {
	switch t := v.(type) {
	case jsonvalue.Array:
		for _, item := range t {
			objectKeys(item, fn)
		}
	case jsonvalue.Object:
		for k, item := range t {
			fn(k)
			objectKeys(item, fn)
		}
	}
}

func TestValueStripsMarkupKeys(t *testing.T) {
	in := jsonvalue.Object{
		"<script>alert(1)</script>": jsonvalue.String("x"),
		"<b>name</b>":               jsonvalue.String("Ann"),
		"name":                      jsonvalue.String("Bob"),
		"rows": jsonvalue.Array{jsonvalue.Object{
			`<img src=x onerror="alert(1)">label`: jsonvalue.Number("1"),
		}},
	}

	out := Value(in).(jsonvalue.Object)

	assert.Equal(t, jsonvalue.String("x"), out[""])
	assert.Equal(t, jsonvalue.String("Bob"), out["name"])
	assert.Len(t, out, 3)
	assert.Equal(t, jsonvalue.Object{"label": jsonvalue.Number("1")}, out["rows"].(jsonvalue.Array)[0])
}
