package ptymux

import "strings"

// KeyName identifies a non-printable key that carries no rune of its own.
type KeyName string

const (
	KeyUp        KeyName = "up"
	KeyDown      KeyName = "down"
	KeyLeft      KeyName = "left"
	KeyRight     KeyName = "right"
	KeyHome      KeyName = "home"
	KeyEnd       KeyName = "end"
	KeyPageUp    KeyName = "page_up"
	KeyPageDown  KeyName = "page_down"
	KeyInsert    KeyName = "insert"
	KeyDelete    KeyName = "delete"
	KeyEnter     KeyName = "enter"
	KeyTab       KeyName = "tab"
	KeyBackspace KeyName = "backspace"
	KeyEscape    KeyName = "escape"
	KeyF1        KeyName = "f1"
	KeyF2        KeyName = "f2"
	KeyF3        KeyName = "f3"
	KeyF4        KeyName = "f4"
	KeyF5        KeyName = "f5"
	KeyF6        KeyName = "f6"
	KeyF7        KeyName = "f7"
	KeyF8        KeyName = "f8"
	KeyF9        KeyName = "f9"
	KeyF10       KeyName = "f10"
	KeyF11       KeyName = "f11"
	// KeyF12 is reserved exclusively as the global terminal-focus toggle and
	// is never encoded to a PTY child.
	KeyF12 KeyName = "f12"
)

// KeyEvent is the abstract key event the host layer decodes from the
// terminal and hands to the reducer or, when terminal focus is on, to
// KeyToBytes.
type KeyEvent struct {
	Rune  rune
	Name  KeyName
	Ctrl  bool
	Alt   bool
	Shift bool
}

var csiSequences = map[KeyName]string{
	KeyUp:       "\x1b[A",
	KeyDown:     "\x1b[B",
	KeyRight:    "\x1b[C",
	KeyLeft:     "\x1b[D",
	KeyHome:     "\x1b[H",
	KeyEnd:      "\x1b[F",
	KeyPageUp:   "\x1b[5~",
	KeyPageDown: "\x1b[6~",
	KeyInsert:   "\x1b[2~",
	KeyDelete:   "\x1b[3~",
	KeyF1:       "\x1bOP",
	KeyF2:       "\x1bOQ",
	KeyF3:       "\x1bOR",
	KeyF4:       "\x1bOS",
	KeyF5:       "\x1b[15~",
	KeyF6:       "\x1b[17~",
	KeyF7:       "\x1b[18~",
	KeyF8:       "\x1b[19~",
	KeyF9:       "\x1b[20~",
	KeyF10:      "\x1b[21~",
	KeyF11:      "\x1b[23~",
}

// KeyToBytes encodes an abstract key event into the byte sequence a PTY
// child expects, or reports ok=false when the key carries no encoding (F12,
// bare modifier presses, and anything unrecognized).
func KeyToBytes(ev KeyEvent) (data []byte, ok bool) {
	if ev.Name == KeyF12 {
		return nil, false
	}

	var seq string
	switch {
	case ev.Name == KeyEnter:
		seq = "\r"
	case ev.Name == KeyTab:
		seq = "\t"
	case ev.Name == KeyBackspace:
		seq = "\x7f"
	case ev.Name == KeyEscape:
		seq = "\x1b"
	case ev.Name != "":
		found, known := csiSequences[ev.Name]
		if !known {
			return nil, false
		}
		seq = found
	case ev.Ctrl && ev.Rune >= 'a' && ev.Rune <= 'z':
		seq = string(rune(ev.Rune - 'a' + 1))
	case ev.Ctrl && ev.Rune >= 'A' && ev.Rune <= 'Z':
		seq = string(rune(ev.Rune - 'A' + 1))
	case ev.Rune != 0:
		seq = string(ev.Rune)
	default:
		return nil, false
	}

	if ev.Alt {
		seq = "\x1b" + seq
	}
	return []byte(seq), true
}

// IsPrintable reports whether r is a plain printable rune suitable for text
// input outside terminal focus (form fields, search queries).
func IsPrintable(r rune) bool {
	return r >= 0x20 && r != 0x7f
}

// TrimCR normalizes child output line endings by dropping every carriage
// return, so CRLF becomes LF and newlines remain the only line separators.
func TrimCR(s string) string {
	return strings.ReplaceAll(s, "\r", "")
}
