package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullFloat_Scan(t *testing.T) {
	cases := []struct {
		src  interface{}
		want NullFloat
	}{
		{nil, NullFloat{}},
		{0.25, Float(0.25)},
		{int64(1), Float(1)},
		{"0.75", Float(0.75)},
		{[]byte(" 0.5 "), Float(0.5)},
		{"unknown", NullFloat{Text: "unknown"}},
	}
	for _, c := range cases {
		var n NullFloat
		require.NoError(t, n.Scan(c.src))
		assert.Equal(t, c.want, n, "src %#v", c.src)
	}

	var n NullFloat
	assert.Error(t, n.Scan(true))
}

func TestNullFloat_JSON(t *testing.T) {
	type row struct {
		Perf NullFloat `json:"perf"`
	}

	out, err := json.Marshal(row{Perf: Float(0.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"perf":0.5}`, string(out))

	out, err = json.Marshal(row{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"perf":null}`, string(out))

	var r row
	require.NoError(t, json.Unmarshal([]byte(`{"perf":"0.9"}`), &r))
	assert.Equal(t, Float(0.9), r.Perf)

	require.NoError(t, json.Unmarshal([]byte(`{"perf":null}`), &r))
	assert.False(t, r.Perf.Valid)

	assert.Error(t, json.Unmarshal([]byte(`{"perf":[1]}`), &r))
}

func TestNullFloat_Ptr(t *testing.T) {
	assert.Nil(t, NullFloat{Text: "x"}.Ptr())
	assert.Equal(t, 0.3, *Float(0.3).Ptr())
}
