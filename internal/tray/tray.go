// Package tray shows the service in the system tray using
// getlantern/systray.
package tray

import (
	"encoding/binary"
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem is one clickable tray entry.
type MenuItem struct {
	ID       int
	Title    string
	Checked  bool
	Disabled bool
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the tray icon and menu. Items are declared before Run and
// may be updated from any goroutine afterwards.
type Tray struct {
	title   string
	tooltip string

	mu     sync.Mutex
	items  []*MenuItem
	quitCh chan struct{}
}

// New creates a tray with title and tooltip.
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem appends an item and returns its id. A nil callback makes
// an informational, disabled entry.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{
		ID:       id,
		Title:    title,
		Disabled: callback == nil,
		Callback: callback,
	})
	return id
}

// AddSeparator appends a separator.
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil)
}

// Item returns a copy of the item with id.
func (t *Tray) Item(id int) (MenuItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi := t.lookup(id)
	if mi == nil {
		return MenuItem{}, false
	}
	return *mi, true
}

// SetItemTitle changes the title of an item.
func (t *Tray) SetItemTitle(id int, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi := t.lookup(id)
	if mi == nil {
		return
	}
	mi.Title = title
	if mi.item != nil {
		mi.item.SetTitle(title)
	}
}

// SetItemChecked sets the checked state of an item.
func (t *Tray) SetItemChecked(id int, checked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi := t.lookup(id)
	if mi == nil {
		return
	}
	mi.Checked = checked
	if mi.item == nil {
		return
	}
	if checked {
		mi.item.Check()
	} else {
		mi.item.Uncheck()
	}
}

func (t *Tray) lookup(id int) *MenuItem {
	if id < 0 || id >= len(t.items) {
		return nil
	}
	return t.items[id]
}

// Run starts the tray event loop and blocks until Stop. It must be
// called from the main goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.setup, func() { close(t.quitCh) })
}

func (t *Tray) setup() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(Icon(0x6441a5))

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, mi := range t.items {
		if mi == nil {
			systray.AddSeparator()
			continue
		}
		mi.item = systray.AddMenuItemCheckbox(mi.Title, "", mi.Checked)
		if mi.Disabled {
			mi.item.Disable()
		}
		if mi.Callback == nil {
			continue
		}
		go func(mi *MenuItem, clicked <-chan struct{}) {
			for {
				select {
				case <-clicked:
					mi.Callback()
				case <-t.quitCh:
					return
				}
			}
		}(mi, mi.item.ClickedCh)
	}
}

// Stop quits the tray loop.
func (t *Tray) Stop() {
	systray.Quit()
}

const iconSize = 16

// Icon returns a 16x16 32-bit ICO filled with the RGB color.
func Icon(rgb uint32) []byte {
	const (
		header   = 6
		entry    = 16
		dib      = 40
		pixels   = iconSize * iconSize * 4
		maskRow  = 4
		mask     = iconSize * maskRow
		dataSize = dib + pixels + mask
	)
	buf := make([]byte, header+entry+dataSize)

	// ICONDIR
	binary.LittleEndian.PutUint16(buf[2:], 1)
	binary.LittleEndian.PutUint16(buf[4:], 1)

	// ICONDIRENTRY
	e := buf[header:]
	e[0], e[1] = iconSize, iconSize
	binary.LittleEndian.PutUint16(e[4:], 1)
	binary.LittleEndian.PutUint16(e[6:], 32)
	binary.LittleEndian.PutUint32(e[8:], dataSize)
	binary.LittleEndian.PutUint32(e[12:], header+entry)

	// BITMAPINFOHEADER, height doubled for the AND mask
	d := buf[header+entry:]
	binary.LittleEndian.PutUint32(d[0:], dib)
	binary.LittleEndian.PutUint32(d[4:], iconSize)
	binary.LittleEndian.PutUint32(d[8:], iconSize*2)
	binary.LittleEndian.PutUint16(d[12:], 1)
	binary.LittleEndian.PutUint16(d[14:], 32)
	binary.LittleEndian.PutUint32(d[20:], pixels+mask)

	px := d[dib : dib+pixels]
	for i := 0; i < len(px); i += 4 {
		px[i] = byte(rgb)
		px[i+1] = byte(rgb >> 8)
		px[i+2] = byte(rgb >> 16)
		px[i+3] = 0xff
	}
	return buf
}
