package macro

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateControl(t *testing.T) {
	cases := []struct {
		name string
		c    Control
		want bool
	}{
		{"nil", nil, false},
		{"no type", Control{"key": "a"}, false},
		{"unknown type", Control{"type": "mouse"}, false},
		{"non-string type", Control{"type": 3}, false},
		{"key", Control{"type": "key", "key": "a"}, true},
		{"key with modifiers", Control{"type": "key", "key": "a", "modifiers": []any{"control", "shift"}}, true},
		{"key with typed modifiers", Control{"type": "key", "key": "a", "modifiers": []string{"alt"}}, true},
		{"key with null modifiers", Control{"type": "key", "key": "a", "modifiers": nil}, true},
		{"key empty", Control{"type": "key", "key": ""}, false},
		{"key missing", Control{"type": "key"}, false},
		{"key not string", Control{"type": "key", "key": 4}, false},
		{"modifiers not list", Control{"type": "key", "key": "a", "modifiers": "control"}, false},
		{"modifiers mixed", Control{"type": "key", "key": "a", "modifiers": []any{"control", 1}}, false},
		{"string", Control{"type": "string", "string": "hello"}, true},
		{"string empty", Control{"type": "string", "string": ""}, true},
		{"string missing", Control{"type": "string"}, false},
		{"string not string", Control{"type": "string", "string": 12}, false},
		{"delay", Control{"type": "delay", "delay": float64(100)}, true},
		{"delay zero", Control{"type": "delay", "delay": 0}, true},
		{"delay int64", Control{"type": "delay", "delay": int64(20)}, true},
		{"delay json number", Control{"type": "delay", "delay": json.Number("15")}, true},
		{"delay negative", Control{"type": "delay", "delay": float64(-1)}, false},
		{"delay nan", Control{"type": "delay", "delay": math.NaN()}, false},
		{"delay longest", Control{"type": "delay", "delay": MaxDelayMilliseconds}, true},
		{"delay overflows duration", Control{"type": "delay", "delay": 1e300}, false},
		{"delay infinite", Control{"type": "delay", "delay": math.Inf(1)}, false},
		{"delay huge uint64", Control{"type": "delay", "delay": uint64(math.MaxUint64)}, false},
		{"delay string", Control{"type": "delay", "delay": "100"}, false},
		{"delay missing", Control{"type": "delay"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateControl(tc.c))
		})
	}
}

func TestValidateMacro(t *testing.T) {
	assert.False(t, ValidateMacro(nil))
	assert.False(t, ValidateMacro(Macro{}))
	assert.True(t, ValidateMacro(Macro{{"type": "string", "string": "x"}}))
	assert.False(t, ValidateMacro(Macro{{"type": "string", "string": "x"}, {"type": "delay", "delay": -5}}))
}

func TestDecode(t *testing.T) {
	a, err := Decode(Control{"type": "key", "key": "f9", "modifiers": []any{"control"}})
	require.NoError(t, err)
	assert.Equal(t, KeyTap{Key: "f9", Modifiers: []string{"control"}}, a)

	a, err = Decode(Control{"type": "string", "string": "brb"})
	require.NoError(t, err)
	assert.Equal(t, TypeText{Text: "brb"}, a)

	a, err = Decode(Control{"type": "delay", "delay": 250})
	require.NoError(t, err)
	require.IsType(t, Delay{}, a)
	assert.Equal(t, 250*time.Millisecond, a.(Delay).Duration())

	_, err = Decode(Control{"type": "delay", "delay": -1})
	assert.Error(t, err)

	a, err = Decode(Control{"type": "delay", "delay": MaxDelayMilliseconds})
	require.NoError(t, err)
	assert.Positive(t, a.(Delay).Duration())
}

func TestControlUnmarshalJSON(t *testing.T) {
	var m Macro
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"key","key":"a","modifiers":["shift"]},{"type":"delay","delay":1.5}]`), &m))
	require.Len(t, m, 2)
	assert.True(t, ValidateMacro(m))

	a, err := Decode(m[1])
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Microsecond, a.(Delay).Duration())
}
