// Package theme resolves logical color names and ANSI palette indices to
// concrete RGB values for the PTY session manager's snapshot algorithm. It
// accepts already-decoded palettes; parsing theme definition files is an
// external concern left to the UI loader.
package theme

// RGB is a concrete 24-bit color.
type RGB struct {
	R, G, B uint8
}

// Palette is the set of theme-derived defaults the PTY manager publishes to
// every terminal snapshot: named colors plus the sixteen ANSI palette
// entries used to resolve indices 0-15.
type Palette struct {
	Foreground    RGB
	Background    RGB
	DimForeground RGB
	CursorFg      RGB
	CursorBg      RGB
	SelectionFg   RGB
	SelectionBg   RGB

	// ANSI0_15 holds the sixteen palette entries resolving color indices 0-15.
	ANSI0_15 [16]RGB
}

// GreenScreen is the guaranteed fallback palette: always available even when
// no theme file can be loaded.
func GreenScreen() Palette {
	green := RGB{0x00, 0xff, 0x33}
	dimGreen := RGB{0x00, 0x88, 0x22}
	black := RGB{0x00, 0x00, 0x00}
	return Palette{
		Foreground:    green,
		Background:    black,
		DimForeground: dimGreen,
		CursorFg:      black,
		CursorBg:      green,
		SelectionFg:   black,
		SelectionBg:   green,
		ANSI0_15: [16]RGB{
			black, green, green, green, green, green, green, green,
			dimGreen, green, green, green, green, green, green, green,
		},
	}
}

// Amber is a classic amber-phosphor monochrome palette.
func Amber() Palette {
	amber := RGB{0xff, 0xb0, 0x00}
	dimAmber := RGB{0x99, 0x66, 0x00}
	black := RGB{0x00, 0x00, 0x00}
	return Palette{
		Foreground:    amber,
		Background:    black,
		DimForeground: dimAmber,
		CursorFg:      black,
		CursorBg:      amber,
		SelectionFg:   black,
		SelectionBg:   amber,
		ANSI0_15: [16]RGB{
			black, amber, amber, amber, amber, amber, amber, amber,
			dimAmber, amber, amber, amber, amber, amber, amber, amber,
		},
	}
}

// Paper is a light palette: dark text on an off-white background, for use
// in well-lit rooms.
func Paper() Palette {
	fg := RGB{0x20, 0x20, 0x20}
	dim := RGB{0x60, 0x60, 0x60}
	bg := RGB{0xf5, 0xf5, 0xf0}
	return Palette{
		Foreground:    fg,
		Background:    bg,
		DimForeground: dim,
		CursorFg:      bg,
		CursorBg:      fg,
		SelectionFg:   bg,
		SelectionBg:   fg,
		ANSI0_15: [16]RGB{
			bg, fg, fg, fg, fg, fg, fg, fg,
			dim, fg, fg, fg, fg, fg, fg, fg,
		},
	}
}

// ByName resolves a persisted theme slug to its palette. An unrecognized
// or empty slug falls back to GreenScreen.
func ByName(name string) Palette {
	switch name {
	case "amber":
		return Amber()
	case "paper":
		return Paper()
	default:
		return GreenScreen()
	}
}

// CellFlags mirrors the subset of ANSI cell attributes the resolver cares
// about, decoupled from any specific terminal-emulation library's bit
// layout.
type CellFlags struct {
	Inverse bool
	Dim     bool
	Hidden  bool
	Bold    bool
	Underline bool
}

// ColorRef identifies where a cell's color comes from, in resolution
// priority order.
type ColorRefKind int

const (
	// RefNamed resolves through Palette's Foreground/Background/Cursor fields.
	RefNamed ColorRefKind = iota
	// RefANSI resolves through a 0-255 ANSI palette index.
	RefANSI
	// RefTrueColor passes an already-concrete RGB value through unmodified.
	RefTrueColor
	// RefDefault means "use the palette default for this role" (no explicit
	// color was set on the cell).
	RefDefault
)

// NamedColor identifies which of Palette's named slots a RefNamed color
// points at.
type NamedColor int

const (
	NamedForeground NamedColor = iota
	NamedBackground
	NamedCursorFg
	NamedCursorBg
)

// ColorRef is a cell's reference to a color, as carried by the terminal
// model before resolution against a Palette.
type ColorRef struct {
	Kind      ColorRefKind
	Named     NamedColor
	ANSIIndex uint8
	TrueColor RGB
}

// resolveNamed resolves a RefNamed reference against the palette.
func (p Palette) resolveNamed(n NamedColor) RGB {
	switch n {
	case NamedForeground:
		return p.Foreground
	case NamedBackground:
		return p.Background
	case NamedCursorFg:
		return p.CursorFg
	case NamedCursorBg:
		return p.CursorBg
	default:
		return p.Foreground
	}
}

// Resolve maps a ColorRef to a concrete RGB color under this palette. It
// does not apply cell-flag logic (inverse/dim/hidden/selection/cursor
// overrides) — callers resolve fg and bg independently and then apply
// ResolveCellColors for the full per-cell algorithm.
func (p Palette) Resolve(ref ColorRef) RGB {
	switch ref.Kind {
	case RefNamed:
		return p.resolveNamed(ref.Named)
	case RefTrueColor:
		return ref.TrueColor
	case RefANSI:
		return p.resolveANSIIndex(ref.ANSIIndex)
	default:
		return p.Foreground
	}
}

// resolveANSIIndex implements the standard xterm 256-color index mapping:
// 0-15 through the theme's sixteen palette entries, 16-231 through the
// 6x6x6 color cube, 232-255 through the 24-step grayscale ramp.
func (p Palette) resolveANSIIndex(idx uint8) RGB {
	switch {
	case idx < 16:
		return p.ANSI0_15[idx]
	case idx < 232:
		return cubeColor(idx)
	default:
		return grayRamp(idx)
	}
}

// cubeColorSteps are the six intensity levels used by each axis of the
// xterm 6x6x6 color cube (indices 16-231).
var cubeColorSteps = [6]uint8{0x00, 0x5f, 0x87, 0xaf, 0xd7, 0xff}

func cubeColor(idx uint8) RGB {
	n := int(idx) - 16
	r := n / 36
	g := (n % 36) / 6
	b := n % 6
	return RGB{cubeColorSteps[r], cubeColorSteps[g], cubeColorSteps[b]}
}

// grayRamp implements the 24-step xterm grayscale ramp, indices 232-255,
// running from 0x08 to 0xee in steps of 10.
func grayRamp(idx uint8) RGB {
	level := uint8(8 + 10*(int(idx)-232))
	return RGB{level, level, level}
}

// ResolveCellColors implements the full per-cell color-resolution
// algorithm: inverse swaps fg/bg before resolution, dim overrides fg to
// the theme's dim foreground, hidden forces fg = bg.
func ResolveCellColors(p Palette, fgRef, bgRef ColorRef, flags CellFlags) (fg, bg RGB) {
	if fgRef.Kind == RefDefault {
		fgRef = ColorRef{Kind: RefNamed, Named: NamedForeground}
	}
	if bgRef.Kind == RefDefault {
		bgRef = ColorRef{Kind: RefNamed, Named: NamedBackground}
	}
	if flags.Inverse {
		fgRef, bgRef = bgRef, fgRef
	}

	fg = p.Resolve(fgRef)
	bg = p.Resolve(bgRef)

	if flags.Dim {
		fg = p.DimForeground
	}
	if flags.Hidden {
		fg = bg
	}
	return fg, bg
}
