package ptymux

import (
	"fmt"
	"strconv"
)

// MouseButton identifies the button (or wheel direction) of a MouseEvent.
// Only Left and the two wheel directions are ever encoded; Middle and
// Right are accepted here for completeness but always dropped by
// MouseToBytes.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
	MouseWheelUp
	MouseWheelDown
)

// MouseAction distinguishes press, release, and drag (move-while-pressed).
type MouseAction int

const (
	MousePress MouseAction = iota
	MouseRelease
	MouseDrag
)

// MouseEvent is the abstract mouse event the host layer decodes, already
// translated to viewport-local, 0-based cell coordinates.
type MouseEvent struct {
	Button MouseButton
	Action MouseAction
	Col    int
	Row    int
}

// MouseMode tracks which of the child's mouse-reporting modes are active.
// Encoding is suppressed entirely unless at least one is set.
type MouseMode struct {
	Basic      bool // DECSET 1000
	ButtonDrag bool // DECSET 1002
	AnyMotion  bool // DECSET 1003
	SGR        bool // DECSET 1006
}

func (m MouseMode) enabled() bool {
	return m.Basic || m.ButtonDrag || m.AnyMotion || m.SGR
}

// sgrButtonCode maps a button/action pair to the SGR protocol's Cb value.
func sgrButtonCode(ev MouseEvent) (code int, ok bool) {
	switch ev.Button {
	case MouseLeft:
		switch ev.Action {
		case MousePress, MouseRelease:
			return 0, true
		case MouseDrag:
			return 32, true
		}
	case MouseWheelUp:
		return 64, true
	case MouseWheelDown:
		return 65, true
	}
	return 0, false
}

// DetectModeChanges scans raw child output for DECSET mouse-reporting mode
// sequences (ESC [ ? Pn h/l) and applies every recognized mode number
// (1000, 1002, 1003, 1006) to mode, returning the updated value.
// Unrecognized mode numbers are scanned past and ignored, the same
// tolerant-scanner shape notification.Detect uses for OSC sequences.
func DetectModeChanges(data []byte, mode MouseMode) MouseMode {
	i := 0
	for i < len(data) {
		if i+2 < len(data) && data[i] == 0x1b && data[i+1] == '[' && data[i+2] == '?' {
			start := i + 3
			j := start
			for j < len(data) && data[j] >= '0' && data[j] <= '9' {
				j++
			}
			if j > start && j < len(data) && (data[j] == 'h' || data[j] == 'l') {
				if n, err := strconv.Atoi(string(data[start:j])); err == nil {
					mode = applyMouseMode(mode, n, data[j] == 'h')
				}
				i = j + 1
				continue
			}
		}
		i++
	}
	return mode
}

func applyMouseMode(mode MouseMode, n int, enable bool) MouseMode {
	switch n {
	case 1000:
		mode.Basic = enable
	case 1002:
		mode.ButtonDrag = enable
	case 1003:
		mode.AnyMotion = enable
	case 1006:
		mode.SGR = enable
	}
	return mode
}

// MouseToBytes encodes a mouse event into SGR extended mouse protocol
// bytes, or reports ok=false when the event should not be forwarded: a
// middle or right button, or no mouse-reporting mode enabled by the child.
func MouseToBytes(ev MouseEvent, mode MouseMode) (data []byte, ok bool) {
	if !mode.enabled() {
		return nil, false
	}

	code, known := sgrButtonCode(ev)
	if !known {
		return nil, false
	}

	final := byte('M')
	if ev.Action == MouseRelease {
		final = 'm'
	}

	// SGR coordinates are 1-based.
	seq := fmt.Sprintf("\x1b[<%d;%d;%d%c", code, ev.Col+1, ev.Row+1, final)
	return []byte(seq), true
}
