//go:build windows

package input

import (
	"fmt"
	"time"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows implementation of input injection using SendInput

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputKeyboard        = 1
	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
	keyeventfUnicode     = 0x0004
)

type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type keyboardInput struct {
	Type uint32
	Ki   keybdInput
	_    [8]byte // Padding to the size of the C INPUT union
}

// Injector represents a Windows input injector
type Injector struct {
	delay time.Duration
}

// NewInjector creates a new input injector for Windows
func NewInjector() *Injector {
	return &Injector{delay: DefaultKeyDelay}
}

func keyEvent(k Key, up bool) keyboardInput {
	var flags uint32
	if k.Extended {
		flags |= keyeventfExtendedKey
	}
	if up {
		flags |= keyeventfKeyUp
	}
	return keyboardInput{Type: inputKeyboard, Ki: keybdInput{Vk: k.VK, Flags: flags}}
}

func sendInput(inputs []keyboardInput) error {
	if len(inputs) == 0 {
		return nil
	}
	n, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(n) != len(inputs) {
		return fmt.Errorf("SendInput accepted %d of %d events: %w", n, len(inputs), err)
	}
	return nil
}

// TapKey presses key with modifiers held, then releases everything in
// reverse order.
func (i *Injector) TapKey(key string, modifiers []string) error {
	k, err := LookupKey(key)
	if err != nil {
		return err
	}
	mods, err := ParseModifiers(modifiers)
	if err != nil {
		return err
	}

	inputs := make([]keyboardInput, 0, 2*len(mods)+2)
	for _, m := range mods {
		inputs = append(inputs, keyEvent(m.Key(), false))
	}
	inputs = append(inputs, keyEvent(k, false), keyEvent(k, true))
	for j := len(mods) - 1; j >= 0; j-- {
		inputs = append(inputs, keyEvent(mods[j].Key(), true))
	}

	if err := sendInput(inputs); err != nil {
		return err
	}
	time.Sleep(i.delay)
	return nil
}

// TypeText types text through KEYEVENTF_UNICODE, one UTF-16 unit per event.
func (i *Injector) TypeText(text string) error {
	units := utf16.Encode([]rune(text))
	for _, u := range units {
		inputs := []keyboardInput{
			{Type: inputKeyboard, Ki: keybdInput{Scan: u, Flags: keyeventfUnicode}},
			{Type: inputKeyboard, Ki: keybdInput{Scan: u, Flags: keyeventfUnicode | keyeventfKeyUp}},
		}
		if err := sendInput(inputs); err != nil {
			return err
		}
		time.Sleep(i.delay)
	}
	return nil
}
