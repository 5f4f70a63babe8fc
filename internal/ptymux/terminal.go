package ptymux

import (
	"hash/fnv"
	"image/color"
	"sync"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/vt"

	"github.com/jefehq/jefe/internal/theme"
)

// MaxScrollback is the default scrollback buffer size per terminal model.
const MaxScrollback = 20000

// terminalModel wraps the charmbracelet/x/vt emulator (a SafeEmulator, which
// locks itself for the reader thread's writes), guards its own dimensions
// and scrollback with a mutex, and resolves cells against a theme.Palette
// before handing a snapshot to the renderer.
type terminalModel struct {
	mu sync.Mutex

	term vt.Terminal
	rows, cols int

	scrollback    []string
	maxScrollback int
}

func newTerminalModel(rows, cols int) *terminalModel {
	return &terminalModel{
		term:          vt.NewSafeEmulator(cols, rows),
		rows:          rows,
		cols:          cols,
		scrollback:    make([]string, 0),
		maxScrollback: MaxScrollback,
	}
}

// process feeds bytes to the emulator. SafeEmulator handles its own
// internal locking; terminalModel's own mutex additionally guards the
// dimension fields and scrollback buffer against concurrent snapshot reads.
func (m *terminalModel) process(data []byte) {
	m.term.Write(data)
}

func (m *terminalModel) resize(rows, cols int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows, m.cols = rows, cols
	m.term.Resize(cols, rows)
}

func (m *terminalModel) size() (rows, cols int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows, m.cols
}

// Cell is one resolved cell of a Snapshot: a unicode scalar plus resolved
// fg/bg RGB and the two attributes carried through to rendering.
type Cell struct {
	Rune      rune
	FG, BG    theme.RGB
	Bold      bool
	Underline bool
}

// Snapshot is a read-only cell grid extracted from the terminal model.
// Trailing runs of blank cells on each row are trimmed to minimize renderer
// work.
type Snapshot struct {
	Rows, Cols int
	Cells      [][]Cell
	CursorRow  int
	CursorCol  int
}

// selection describes an inclusive cell span rendered with the theme's
// selection colors instead of the cell's own.
type selection struct {
	active           bool
	startRow, startCol int
	endRow, endCol   int
}

func (s selection) contains(row, col int) bool {
	if !s.active {
		return false
	}
	if row < s.startRow || row > s.endRow {
		return false
	}
	if row == s.startRow && col < s.startCol {
		return false
	}
	if row == s.endRow && col > s.endCol {
		return false
	}
	return true
}

// snapshot locks briefly, resolves each on-screen cell's fg/bg against the
// palette, applies selection/cursor overrides, and trims trailing blank
// runs per row.
func (m *terminalModel) snapshot(p theme.Palette, sel selection) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, cols := m.rows, m.cols
	cursor := m.term.CursorPosition()

	cells := make([][]Cell, rows)
	for y := 0; y < rows; y++ {
		row := make([]Cell, cols)
		lastNonBlank := -1

		for x := 0; x < cols; x++ {
			cell := m.term.CellAt(x, y)

			r := ' '
			var flags theme.CellFlags
			fgRef := theme.ColorRef{Kind: theme.RefNamed, Named: theme.NamedForeground}
			bgRef := theme.ColorRef{Kind: theme.RefNamed, Named: theme.NamedBackground}

			if cell != nil {
				if cell.Content != "" {
					runes := []rune(cell.Content)
					if len(runes) > 0 {
						r = runes[0]
					}
				}
				flags.Bold = cell.Style.Attrs&uv.AttrBold != 0
				flags.Dim = cell.Style.Attrs&uv.AttrFaint != 0
				flags.Underline = cell.Style.Attrs&uv.AttrUnderline != 0
				flags.Inverse = cell.Style.Attrs&uv.AttrReverse != 0
				flags.Hidden = cell.Style.Attrs&uv.AttrHidden != 0

				if ref, ok := classifyColor(cell.Style.Fg); ok {
					fgRef = ref
				}
				if ref, ok := classifyColor(cell.Style.Bg); ok {
					bgRef = ref
				}
			}

			fg, bg := theme.ResolveCellColors(p, fgRef, bgRef, flags)

			switch {
			case cursor.Y == y && cursor.X == x:
				fg, bg = p.CursorFg, p.CursorBg
			case sel.contains(y, x):
				fg, bg = p.SelectionFg, p.SelectionBg
			}

			row[x] = Cell{Rune: r, FG: fg, BG: bg, Bold: flags.Bold, Underline: flags.Underline}

			if r != ' ' {
				lastNonBlank = x
			}
		}

		cells[y] = row[:lastNonBlank+1]
	}

	return Snapshot{Rows: rows, Cols: cols, Cells: cells, CursorRow: cursor.Y, CursorCol: cursor.X}
}

// classifyColor maps a resolved cell color.Color to a theme.ColorRef. An
// unset color (nil, the vt library's convention for "use terminal
// default") reports ok=false so callers keep their named-default ColorRef.
// x/ansi's indexed color types (SGR 30-37/90-97 and 38;5;n) carry the
// original palette index and resolve their own RGBA() through the
// library's built-in table rather than internal/theme's, so they are
// recovered here and routed through theme.ResolveCellColors instead.
// Anything else is a genuine 24-bit color.
func classifyColor(c color.Color) (theme.ColorRef, bool) {
	if c == nil {
		return theme.ColorRef{}, false
	}
	switch v := c.(type) {
	case ansi.BasicColor:
		return theme.ColorRef{Kind: theme.RefANSI, ANSIIndex: uint8(v)}, true
	case ansi.ExtendedColor:
		return theme.ColorRef{Kind: theme.RefANSI, ANSIIndex: uint8(v)}, true
	}
	r, g, b, _ := c.RGBA()
	return theme.ColorRef{
		Kind:      theme.RefTrueColor,
		TrueColor: theme.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)},
	}, true
}

func (m *terminalModel) addToScrollback(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrollback = append(m.scrollback, line)
	if len(m.scrollback) > m.maxScrollback {
		m.scrollback = m.scrollback[1:]
	}
}

func (m *terminalModel) scrollbackCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scrollback)
}

func (m *terminalModel) hash() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := fnv.New64a()
	for y := 0; y < m.rows; y++ {
		for x := 0; x < m.cols; x++ {
			cell := m.term.CellAt(x, y)
			if cell != nil && cell.Content != "" {
				h.Write([]byte(cell.Content))
			}
		}
	}
	return h.Sum64()
}
