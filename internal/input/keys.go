package input

import (
	"errors"
	"fmt"
	"strings"
)

// noMacCode marks keys that have no macOS virtual key code.
const noMacCode uint16 = 0xFFFF

// Key describes one named key across platforms.
type Key struct {
	Name string

	// VK is the Windows virtual-key code.
	VK uint16

	// Mac is the macOS CGKeyCode, noMacCode when unavailable.
	Mac uint16

	// X11 is the keysym name understood by xdotool.
	X11 string

	// Extended keys need KEYEVENTF_EXTENDEDKEY on Windows.
	Extended bool
}

// Modifier is a key held down for the duration of a tap.
type Modifier string

const (
	ModAlt     Modifier = "alt"
	ModCommand Modifier = "command"
	ModControl Modifier = "control"
	ModShift   Modifier = "shift"
)

var modifierAliases = map[string]Modifier{
	"alt":     ModAlt,
	"option":  ModAlt,
	"command": ModCommand,
	"cmd":     ModCommand,
	"super":   ModCommand,
	"win":     ModCommand,
	"control": ModControl,
	"ctrl":    ModControl,
	"shift":   ModShift,
}

// modifierKeys maps each modifier to the key that is held for it.
var modifierKeys = map[Modifier]Key{
	ModAlt:     {Name: "alt", VK: 0x12, Mac: 0x3A, X11: "alt"},
	ModCommand: {Name: "command", VK: 0x5B, Mac: 0x37, X11: "super", Extended: true},
	ModControl: {Name: "control", VK: 0x11, Mac: 0x3B, X11: "ctrl"},
	ModShift:   {Name: "shift", VK: 0x10, Mac: 0x38, X11: "shift"},
}

var (
	// ErrUnknownKey is wrapped by lookups of key names outside the table.
	ErrUnknownKey = errors.New("invalid key code specified")

	// ErrUnknownModifier is wrapped by lookups of unknown modifier names.
	ErrUnknownModifier = errors.New("invalid key flag specified")
)

var keyTable = map[string]Key{}

func addKey(k Key) {
	keyTable[k.Name] = k
}

func init() {
	// Letters: Windows VK_A..VK_Z are contiguous, macOS codes are not.
	macLetters := []uint16{
		0x00, 0x0B, 0x08, 0x02, 0x0E, 0x03, 0x05, 0x04, 0x22, 0x26, 0x28, 0x25, 0x2E,
		0x2D, 0x1F, 0x23, 0x0C, 0x0F, 0x01, 0x11, 0x20, 0x09, 0x0D, 0x07, 0x10, 0x06,
	}
	for i := 0; i < 26; i++ {
		name := string(rune('a' + i))
		addKey(Key{Name: name, VK: uint16(0x41 + i), Mac: macLetters[i], X11: name})
	}

	macDigits := []uint16{0x1D, 0x12, 0x13, 0x14, 0x15, 0x17, 0x16, 0x1A, 0x1C, 0x19}
	macNumpad := []uint16{0x52, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59, 0x5B, 0x5C}
	for i := 0; i < 10; i++ {
		name := string(rune('0' + i))
		addKey(Key{Name: name, VK: uint16(0x30 + i), Mac: macDigits[i], X11: name})
		addKey(Key{
			Name: fmt.Sprintf("numpad_%d", i),
			VK:   uint16(0x60 + i),
			Mac:  macNumpad[i],
			X11:  fmt.Sprintf("KP_%d", i),
		})
	}

	macFunction := []uint16{
		0x7A, 0x78, 0x63, 0x76, 0x60, 0x61, 0x62, 0x64, 0x65, 0x6D, 0x67, 0x6F,
		0x69, 0x6B, 0x71, 0x6A, 0x40, 0x4F, 0x50, 0x5A,
	}
	for i := 1; i <= 24; i++ {
		mac := noMacCode
		if i <= len(macFunction) {
			mac = macFunction[i-1]
		}
		addKey(Key{Name: fmt.Sprintf("f%d", i), VK: uint16(0x70 + i - 1), Mac: mac, X11: fmt.Sprintf("F%d", i)})
	}

	for _, k := range []Key{
		{Name: "backspace", VK: 0x08, Mac: 0x33, X11: "BackSpace"},
		{Name: "tab", VK: 0x09, Mac: 0x30, X11: "Tab"},
		{Name: "enter", VK: 0x0D, Mac: 0x24, X11: "Return"},
		{Name: "escape", VK: 0x1B, Mac: 0x35, X11: "Escape"},
		{Name: "space", VK: 0x20, Mac: 0x31, X11: "space"},
		{Name: "capslock", VK: 0x14, Mac: 0x39, X11: "Caps_Lock"},
		{Name: "printscreen", VK: 0x2C, Mac: noMacCode, X11: "Print"},

		{Name: "pageup", VK: 0x21, Mac: 0x74, X11: "Page_Up", Extended: true},
		{Name: "pagedown", VK: 0x22, Mac: 0x79, X11: "Page_Down", Extended: true},
		{Name: "end", VK: 0x23, Mac: 0x77, X11: "End", Extended: true},
		{Name: "home", VK: 0x24, Mac: 0x73, X11: "Home", Extended: true},
		{Name: "left", VK: 0x25, Mac: 0x7B, X11: "Left", Extended: true},
		{Name: "up", VK: 0x26, Mac: 0x7E, X11: "Up", Extended: true},
		{Name: "right", VK: 0x27, Mac: 0x7C, X11: "Right", Extended: true},
		{Name: "down", VK: 0x28, Mac: 0x7D, X11: "Down", Extended: true},
		{Name: "insert", VK: 0x2D, Mac: 0x72, X11: "Insert", Extended: true},
		{Name: "delete", VK: 0x2E, Mac: 0x75, X11: "Delete", Extended: true},

		{Name: "numpad_*", VK: 0x6A, Mac: 0x43, X11: "KP_Multiply"},
		{Name: "numpad_+", VK: 0x6B, Mac: 0x45, X11: "KP_Add"},
		{Name: "numpad_-", VK: 0x6D, Mac: 0x4E, X11: "KP_Subtract"},
		{Name: "numpad_.", VK: 0x6E, Mac: 0x41, X11: "KP_Decimal"},
		{Name: "numpad_/", VK: 0x6F, Mac: 0x4B, X11: "KP_Divide"},

		{Name: "audio_mute", VK: 0xAD, Mac: 0x4A, X11: "XF86AudioMute"},
		{Name: "audio_vol_down", VK: 0xAE, Mac: 0x49, X11: "XF86AudioLowerVolume"},
		{Name: "audio_vol_up", VK: 0xAF, Mac: 0x48, X11: "XF86AudioRaiseVolume"},
		{Name: "audio_next", VK: 0xB0, Mac: noMacCode, X11: "XF86AudioNext"},
		{Name: "audio_prev", VK: 0xB1, Mac: noMacCode, X11: "XF86AudioPrev"},
		{Name: "audio_stop", VK: 0xB2, Mac: noMacCode, X11: "XF86AudioStop"},
		{Name: "audio_play", VK: 0xB3, Mac: noMacCode, X11: "XF86AudioPlay"},
	} {
		addKey(k)
	}

	// Modifiers can also be tapped on their own.
	for _, k := range modifierKeys {
		addKey(k)
	}
}

// LookupKey resolves a key name (case-insensitive).
func LookupKey(name string) (Key, error) {
	k, ok := keyTable[strings.ToLower(name)]
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return k, nil
}

// ParseModifiers resolves modifier names, dropping duplicates while
// keeping first-seen order.
func ParseModifiers(names []string) ([]Modifier, error) {
	mods := make([]Modifier, 0, len(names))
	seen := make(map[Modifier]bool, len(names))
	for _, n := range names {
		m, ok := modifierAliases[strings.ToLower(n)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModifier, n)
		}
		if !seen[m] {
			seen[m] = true
			mods = append(mods, m)
		}
	}
	return mods, nil
}

// Key returns the key held for the modifier.
func (m Modifier) Key() Key {
	return modifierKeys[m]
}
