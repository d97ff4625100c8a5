package jsonvalue

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsNumberLiterals(t *testing.T) {
	v, err := Parse([]byte(`{"id": 9007199254740993, "price": 12.50, "tags": ["a", null, true]}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, Number("9007199254740993"), obj["id"])
	assert.Equal(t, Number("12.50"), obj["price"])
	assert.Equal(t, Array{String("a"), Null{}, Bool(true)}, obj["tags"])

	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":9007199254740993`)
}

func TestParseEmptyIsNull(t *testing.T) {
	v, err := Parse([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, NullKind, v.Kind())
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Parse([]byte(`{"a":1} {"b":2}`))
	require.Error(t, err)

	_, err = Parse([]byte(`<html>`))
	require.Error(t, err)
}

func TestFromGoStruct(t *testing.T) {
	type patient struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	v, err := FromGo(patient{Name: "Ada", Age: 36})
	require.NoError(t, err)
	assert.True(t, Equal(Object{"name": String("Ada"), "age": Number("36")}, v))

	same, err := FromGo(v)
	require.NoError(t, err)
	assert.True(t, Equal(v, same))
}

func TestMapStringsRecursesEveryContainer(t *testing.T) {
	in := Object{
		"a": String("x"),
		"b": Array{String("y"), Object{"c": String("z"), "n": Number("1")}},
		"d": Bool(false),
	}
	out := MapStrings(in, strings.ToUpper)

	want := Object{
		"a": String("X"),
		"b": Array{String("Y"), Object{"c": String("Z"), "n": Number("1")}},
		"d": Bool(false),
	}
	assert.True(t, Equal(want, out))
	// input untouched
	assert.Equal(t, String("x"), in["a"])
}

func TestDecodeIntoStruct(t *testing.T) {
	var dst struct {
		Items []string `json:"items"`
	}
	require.NoError(t, Decode(Object{"items": Array{String("a"), String("b")}}, &dst))
	assert.Equal(t, []string{"a", "b"}, dst.Items)
}

func TestToGoMatchesEncodingJSON(t *testing.T) {
	v := Object{"n": Number("3"), "list": Array{Null{}, String("s")}}
	got := ToGo(v).(map[string]interface{})
	assert.Equal(t, json.Number("3"), got["n"])
	assert.Equal(t, []interface{}{nil, "s"}, got["list"])
}

func TestEqualNumbersByValue(t *testing.T) {
	assert.True(t, Equal(Number("1.0"), Number("1")))
	assert.False(t, Equal(Number("1"), String("1")))
	assert.True(t, Equal(nil, Null{}))
}

func TestMapKeysAndStringsRewritesKeys(t *testing.T) {
	strip := func(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "<", ""), ">", "") }
	v := Object{
		"<b>":  Object{"<i>": String("<x>")},
		"list": Array{Object{"<k>": Bool(true)}},
	}

	out := MapKeysAndStrings(v, strip, strip)

	assert.True(t, Equal(Object{
		"b":    Object{"i": String("x")},
		"list": Array{Object{"k": Bool(true)}},
	}, out))
	assert.Contains(t, v, "<b>", "input is not modified")
}

func TestMapKeysAndStringsCollisions(t *testing.T) {
	strip := func(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "<", ""), ">", "") }

	// an untouched key beats a rewritten one
	out := MapKeysAndStrings(Object{"<a>": String("rewritten"), "a": String("clean")}, strip, strip)
	assert.Equal(t, Object{"a": String("clean")}, out)

	// among rewritten keys the smallest original key wins
	out = MapKeysAndStrings(Object{"a>": String("second"), "<a": String("first")}, strip, strip)
	assert.Equal(t, Object{"a": String("first")}, out)
}

func TestMarshalRejectsInvalidNumberLiterals(t *testing.T) {
	for _, lit := range []string{"NaN", "Infinity", "-", "1e", "0x10", "true", `"1"`, "1 2"} {
		_, err := Marshal(Number(lit))
		assert.Error(t, err, "literal %q", lit)
	}
	_, err := Marshal(Array{Number("NaN")})
	assert.Error(t, err)

	for _, lit := range []string{"0", "-1", "12.50", "1e-7", "9007199254740993"} {
		data, err := Marshal(Number(lit))
		require.NoError(t, err, "literal %q", lit)
		assert.Equal(t, lit, string(data))
	}
}
