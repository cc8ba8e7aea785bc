// Package autostart registers the service to start on login.
package autostart

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

// Label identifies the login item on every platform.
const Label = "stream-automate"

// ErrUnsupported is returned on platforms without a login item mechanism.
var ErrUnsupported = fmt.Errorf("autostart not supported on %s", runtime.GOOS)

// Entry is the command started on login.
type Entry struct {
	Executable string
	Args       []string
}

// CurrentEntry starts the running executable with args.
func CurrentEntry(args ...string) (Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	return Entry{Executable: exe, Args: args}, nil
}

// CommandLine renders e with every part quoted when it contains spaces.
func (e Entry) CommandLine() string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, p := range append([]string{e.Executable}, e.Args...) {
		if strings.ContainsAny(p, " \t") {
			p = `"` + p + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// userHome is replaced in tests.
var userHome = os.UserHomeDir

// Enable registers e to run on login, replacing an earlier entry.
func Enable(e Entry) error {
	switch runtime.GOOS {
	case "darwin":
		return enableMac(e)
	case "windows":
		return enableWindows(e)
	case "linux", "freebsd", "openbsd", "netbsd":
		return enableXDG(e)
	default:
		return ErrUnsupported
	}
}

// Disable removes the login item. Removing a missing item is not an error.
func Disable() error {
	switch runtime.GOOS {
	case "darwin":
		return disableMac()
	case "windows":
		return disableWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return disableXDG()
	default:
		return ErrUnsupported
	}
}

// IsEnabled reports whether the login item exists.
func IsEnabled() bool {
	switch runtime.GOOS {
	case "darwin":
		return exists(launchAgentPath)
	case "windows":
		return isEnabledWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return exists(desktopEntryPath)
	default:
		return false
	}
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.hlemont.{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Executable}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`))

var desktopTemplate = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Name={{.Label}}
Comment=OBS remote control server
Exec={{.CommandLine}}
Terminal=false
X-GNOME-Autostart-enabled=true
`))

type view struct {
	Entry
	Label string
}

func render(t *template.Template, e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, view{Entry: e, Label: Label}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func launchAgentPath() (string, error) {
	home, err := userHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", "com.hlemont."+Label+".plist"), nil
}

func desktopEntryPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := userHome()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "autostart", Label+".desktop"), nil
}

func enableMac(e Entry) error {
	return install(launchAgentPath, plistTemplate, e)
}

func disableMac() error {
	return remove(launchAgentPath)
}

func enableXDG(e Entry) error {
	return install(desktopEntryPath, desktopTemplate, e)
}

func disableXDG() error {
	return remove(desktopEntryPath)
}

func install(path func() (string, error), t *template.Template, e Entry) error {
	p, err := path()
	if err != nil {
		return err
	}
	data, err := render(t, e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func remove(path func() (string, error)) error {
	p, err := path()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func exists(path func() (string, error)) bool {
	p, err := path()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}
