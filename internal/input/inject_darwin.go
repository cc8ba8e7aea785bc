//go:build darwin

package input

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <ApplicationServices/ApplicationServices.h>

// Check if we have accessibility permissions
static bool hasAccessibilityPermissions() {
    return AXIsProcessTrusted();
}

static CGEventFlags modifierFlags(bool shift, bool control, bool alt, bool command) {
    CGEventFlags flags = 0;
    if (shift)   flags |= kCGEventFlagMaskShift;
    if (control) flags |= kCGEventFlagMaskControl;
    if (alt)     flags |= kCGEventFlagMaskAlternate;
    if (command) flags |= kCGEventFlagMaskCommand;
    return flags;
}

static void tapKey(CGKeyCode keyCode, bool shift, bool control, bool alt, bool command) {
    CGEventFlags flags = modifierFlags(shift, control, alt, command);

    CGEventRef down = CGEventCreateKeyboardEvent(NULL, keyCode, true);
    CGEventSetFlags(down, flags);
    CGEventPost(kCGSessionEventTap, down);
    CFRelease(down);

    CGEventRef up = CGEventCreateKeyboardEvent(NULL, keyCode, false);
    CGEventSetFlags(up, flags);
    CGEventPost(kCGSessionEventTap, up);
    CFRelease(up);
}

static void typeUnicode(UniChar *chars, int length) {
    CGEventRef down = CGEventCreateKeyboardEvent(NULL, 0, true);
    CGEventKeyboardSetUnicodeString(down, length, chars);
    CGEventPost(kCGSessionEventTap, down);
    CFRelease(down);

    CGEventRef up = CGEventCreateKeyboardEvent(NULL, 0, false);
    CGEventKeyboardSetUnicodeString(up, length, chars);
    CGEventPost(kCGSessionEventTap, up);
    CFRelease(up);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf16"
	"unsafe"
)

// macOS implementation of input injection using CoreGraphics

// ErrNoAccessibility is returned when the process is not trusted for
// accessibility, in which case macOS silently drops injected events.
var ErrNoAccessibility = errors.New("accessibility permission not granted")

// Injector represents a macOS input injector
type Injector struct {
	delay time.Duration
}

// NewInjector creates a new input injector for macOS
func NewInjector() *Injector {
	return &Injector{delay: DefaultKeyDelay}
}

func (i *Injector) checkTrusted() error {
	if !bool(C.hasAccessibilityPermissions()) {
		return ErrNoAccessibility
	}
	return nil
}

// TapKey presses and releases key with the modifier flags set.
func (i *Injector) TapKey(key string, modifiers []string) error {
	if err := i.checkTrusted(); err != nil {
		return err
	}
	k, err := LookupKey(key)
	if err != nil {
		return err
	}
	if k.Mac == noMacCode {
		return fmt.Errorf("%w: %q has no macOS key code", ErrUnknownKey, key)
	}
	mods, err := ParseModifiers(modifiers)
	if err != nil {
		return err
	}

	var shift, control, alt, command bool
	for _, m := range mods {
		switch m {
		case ModShift:
			shift = true
		case ModControl:
			control = true
		case ModAlt:
			alt = true
		case ModCommand:
			command = true
		}
	}

	C.tapKey(C.CGKeyCode(k.Mac), C.bool(shift), C.bool(control), C.bool(alt), C.bool(command))
	time.Sleep(i.delay)
	return nil
}

// TypeText posts one unicode keyboard event pair per character.
func (i *Injector) TypeText(text string) error {
	if text == "" {
		return nil
	}
	if err := i.checkTrusted(); err != nil {
		return err
	}
	for _, r := range text {
		units := utf16.Encode([]rune{r})
		C.typeUnicode((*C.UniChar)(unsafe.Pointer(&units[0])), C.int(len(units)))
		time.Sleep(i.delay)
	}
	return nil
}
