package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_PreservesKeyOrder(t *testing.T) {
	v, err := ParseJSON([]byte(`{"z":1,"a":2,"m":{"y":true,"b":null}}`))
	require.NoError(t, err)

	m, ok := v.AsMap()
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())

	inner, _ := m.Get("m")
	im, ok := inner.AsMap()
	require.True(t, ok)
	assert.Equal(t, []string{"y", "b"}, im.Keys())
}

func TestParseJSON_Kinds(t *testing.T) {
	v, err := ParseJSON([]byte(`{"s":"x","n":1.5,"b":false,"l":[1,"two"],"z":null}`))
	require.NoError(t, err)
	m, _ := v.AsMap()

	s, _ := m.Get("s")
	assert.Equal(t, KindString, s.Kind())
	n, _ := m.Get("n")
	assert.Equal(t, KindNumber, n.Kind())
	b, _ := m.Get("b")
	assert.Equal(t, KindBool, b.Kind())
	l, _ := m.Get("l")
	items, ok := l.AsList()
	require.True(t, ok)
	assert.Len(t, items, 2)
	z, _ := m.Get("z")
	assert.True(t, z.IsNull())
}

func TestParseJSON_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"truncated", `{"a":`},
		{"trailing literal", `{"a":1} trailing`},
		{"second document", `{"a":1} {"b":2}`},
		{"stray closer", `{"a":1} }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseJSON_TrailingWhitespaceAllowed(t *testing.T) {
	v, err := ParseJSON([]byte("{\"a\":1}\n  "))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v.String())
}

func TestValue_NumberRendering(t *testing.T) {
	tests := []struct {
		literal  string
		expected string
	}{
		{"42", "42"},
		{"42.0", "42"},
		{"1e2", "100"},
		{"1.5", "1.5"},
		{"-0.25", "-0.25"},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			data, err := Number(tt.literal).MarshalJSON()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestValue_NumericEquality(t *testing.T) {
	assert.True(t, Number("1").Equal(Number("1.0")))
	assert.True(t, Int(100).Equal(Number("1e2")))
	assert.False(t, Number("1").Equal(Number("1.01")))
	assert.False(t, Number("1").Equal(String("1")))
}

func TestValue_CloneIsDeep(t *testing.T) {
	inner := MapOf("k", "v")
	original := List(Object(inner))
	clone := original.Clone()

	inner.Set("k", String("changed"))

	items, _ := clone.AsList()
	cm, _ := items[0].AsMap()
	v, _ := cm.Get("k")
	s, _ := v.AsString()
	assert.Equal(t, "v", s)
}

func TestValue_UnmarshalMarshalRoundtrip(t *testing.T) {
	raw := `{"device":{"mount1":{"ra":12.5,"tracking":true,"name":"m"}},"list":[1,2,3]}`
	var v Value
	require.NoError(t, v.UnmarshalJSON([]byte(raw)))

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, raw, string(out))
}

func TestFromInterface(t *testing.T) {
	v := FromInterface(map[string]any{
		"b": 1,
		"a": []any{"x", true, nil, 2.5},
	})
	m, ok := v.AsMap()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	assert.Equal(t, `{"a":["x",true,null,2.5],"b":1}`, v.String())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "map", KindMap.String())
	assert.Equal(t, "null", KindNull.String())
	assert.Equal(t, "list", KindList.String())
}
