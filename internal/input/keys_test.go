package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKey(t *testing.T) {
	k, err := LookupKey("A")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x41), k.VK)
	assert.Equal(t, uint16(0x00), k.Mac)
	assert.Equal(t, "a", k.X11)

	k, err = LookupKey("enter")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0D), k.VK)
	assert.Equal(t, "Return", k.X11)

	k, err = LookupKey("up")
	require.NoError(t, err)
	assert.True(t, k.Extended)

	k, err = LookupKey("f13")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x7C), k.VK)
	assert.Equal(t, uint16(0x69), k.Mac)

	k, err = LookupKey("f24")
	require.NoError(t, err)
	assert.Equal(t, noMacCode, k.Mac)

	k, err = LookupKey("numpad_7")
	require.NoError(t, err)
	assert.Equal(t, "KP_7", k.X11)
}

func TestLookupUnknownKey(t *testing.T) {
	_, err := LookupKey("hyper")
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = LookupKey("")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestParseModifiers(t *testing.T) {
	mods, err := ParseModifiers([]string{"Control", "shift", "ctrl", "cmd"})
	require.NoError(t, err)
	assert.Equal(t, []Modifier{ModControl, ModShift, ModCommand}, mods)

	mods, err = ParseModifiers(nil)
	require.NoError(t, err)
	assert.Empty(t, mods)

	_, err = ParseModifiers([]string{"hyper"})
	assert.ErrorIs(t, err, ErrUnknownModifier)
}

func TestModifierKeys(t *testing.T) {
	assert.Equal(t, uint16(0x10), ModShift.Key().VK)
	assert.Equal(t, "ctrl", ModControl.Key().X11)
	assert.Equal(t, uint16(0x37), ModCommand.Key().Mac)
}
