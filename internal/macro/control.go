// Package macro validates and runs sequences of keyboard controls.
//
// A control is one atomic automation step, received as a loosely typed
// JSON (or YAML/TOML) object and selected by its "type" field:
//
//	{"type": "key", "key": "f9", "modifiers": ["control"]}
//	{"type": "string", "string": "brb"}
//	{"type": "delay", "delay": 250}
//
// Controls stay untyped until they validate, so a missing field, a field
// of the wrong type, and an empty value remain distinguishable. Valid
// controls are decoded into typed actions before anything runs.
package macro

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Type selects the active case of a control.
type Type string

const (
	TypeKey    Type = "key"
	TypeString Type = "string"
	TypeDelay  Type = "delay"
)

// Control is the wire form of one action.
type Control map[string]any

// Type returns the control's tag, or "" when missing or not a string.
func (c Control) Type() Type {
	s, _ := c["type"].(string)
	return Type(s)
}

// Macro is an ordered list of controls.
type Macro []Control

// Action is a validated, typed control.
type Action interface {
	Type() Type
}

// KeyTap presses Key while holding Modifiers.
type KeyTap struct {
	Key       string   `mapstructure:"key"`
	Modifiers []string `mapstructure:"modifiers"`
}

func (KeyTap) Type() Type { return TypeKey }

// TypeText types Text.
type TypeText struct {
	Text string `mapstructure:"string"`
}

func (TypeText) Type() Type { return TypeString }

// Delay pauses for Milliseconds.
type Delay struct {
	Milliseconds float64 `mapstructure:"delay"`
}

func (Delay) Type() Type { return TypeDelay }

// MaxDelayMilliseconds is the longest delay a time.Duration can hold.
const MaxDelayMilliseconds = float64(math.MaxInt64 / int64(time.Millisecond))

// Duration converts the delay to a time.Duration.
func (d Delay) Duration() time.Duration {
	return time.Duration(d.Milliseconds * float64(time.Millisecond))
}

// ValidateControl reports whether c is a well-formed control.
func ValidateControl(c Control) bool {
	if c == nil {
		return false
	}
	switch c.Type() {
	case TypeKey:
		key, ok := c["key"].(string)
		if !ok || key == "" {
			return false
		}
		if mods, present := c["modifiers"]; present && mods != nil {
			return isStringList(mods)
		}
		return true
	case TypeString:
		_, ok := c["string"].(string)
		return ok
	case TypeDelay:
		ms, ok := number(c["delay"])
		return ok && !math.IsNaN(ms) && ms >= 0 && ms <= MaxDelayMilliseconds
	default:
		return false
	}
}

// ValidateMacro reports whether m is non-empty and every control is valid.
func ValidateMacro(m Macro) bool {
	if len(m) == 0 {
		return false
	}
	for _, c := range m {
		if !ValidateControl(c) {
			return false
		}
	}
	return true
}

// Decode converts a valid control into its typed action.
func Decode(c Control) (Action, error) {
	if !ValidateControl(c) {
		return nil, fmt.Errorf("invalid control: %s", describe(c))
	}
	var (
		action Action
		err    error
	)
	switch c.Type() {
	case TypeKey:
		var k KeyTap
		err = mapstructure.Decode(map[string]any(c), &k)
		action = k
	case TypeString:
		var s TypeText
		err = mapstructure.Decode(map[string]any(c), &s)
		action = s
	case TypeDelay:
		ms, _ := number(c["delay"])
		action = Delay{Milliseconds: ms}
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s control: %w", c.Type(), err)
	}
	return action, nil
}

func isStringList(v any) bool {
	switch list := v.(type) {
	case []string:
		return true
	case []any:
		for _, item := range list {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// number accepts every numeric representation the config decoders and
// encoding/json produce.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func describe(c Control) string {
	if t := c.Type(); t != "" {
		return string(t)
	}
	return "unknown"
}
