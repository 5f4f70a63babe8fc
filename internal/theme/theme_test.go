package theme

import "testing"

func TestResolveANSI0to15UsesPalette(t *testing.T) {
	p := GreenScreen()
	for i := 0; i < 16; i++ {
		got := p.resolveANSIIndex(uint8(i))
		want := p.ANSI0_15[i]
		if got != want {
			t.Errorf("resolveANSIIndex(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestCubeColorCorners(t *testing.T) {
	// index 16 is the cube's (0,0,0) corner: black.
	if got := cubeColor(16); got != (RGB{0, 0, 0}) {
		t.Errorf("cubeColor(16) = %v, want black", got)
	}
	// index 231 is the cube's (5,5,5) corner: white.
	if got := cubeColor(231); got != (RGB{0xff, 0xff, 0xff}) {
		t.Errorf("cubeColor(231) = %v, want white", got)
	}
}

func TestGrayRampEndpoints(t *testing.T) {
	if got := grayRamp(232); got != (RGB{8, 8, 8}) {
		t.Errorf("grayRamp(232) = %v, want {8,8,8}", got)
	}
	if got := grayRamp(255); got != (RGB{238, 238, 238}) {
		t.Errorf("grayRamp(255) = %v, want {238,238,238}", got)
	}
}

func TestResolveCellColorsInverseSwapsBeforeResolution(t *testing.T) {
	p := GreenScreen()
	fgRef := ColorRef{Kind: RefNamed, Named: NamedForeground}
	bgRef := ColorRef{Kind: RefNamed, Named: NamedBackground}

	fg, bg := ResolveCellColors(p, fgRef, bgRef, CellFlags{Inverse: true})
	if fg != p.Background || bg != p.Foreground {
		t.Errorf("inverse did not swap: fg=%v bg=%v", fg, bg)
	}
}

func TestResolveCellColorsDimOverridesForeground(t *testing.T) {
	p := GreenScreen()
	fgRef := ColorRef{Kind: RefNamed, Named: NamedForeground}
	bgRef := ColorRef{Kind: RefNamed, Named: NamedBackground}

	fg, _ := ResolveCellColors(p, fgRef, bgRef, CellFlags{Dim: true})
	if fg != p.DimForeground {
		t.Errorf("dim fg = %v, want %v", fg, p.DimForeground)
	}
}

func TestResolveCellColorsHiddenForcesFgEqualsBg(t *testing.T) {
	p := GreenScreen()
	fgRef := ColorRef{Kind: RefNamed, Named: NamedForeground}
	bgRef := ColorRef{Kind: RefNamed, Named: NamedBackground}

	fg, bg := ResolveCellColors(p, fgRef, bgRef, CellFlags{Hidden: true})
	if fg != bg {
		t.Errorf("hidden fg=%v bg=%v, want equal", fg, bg)
	}
}

func TestResolveTrueColorPassesThrough(t *testing.T) {
	p := GreenScreen()
	ref := ColorRef{Kind: RefTrueColor, TrueColor: RGB{1, 2, 3}}
	if got := p.Resolve(ref); got != (RGB{1, 2, 3}) {
		t.Errorf("Resolve(true color) = %v, want {1,2,3}", got)
	}
}

func TestIdenticalInputsProduceIdenticalOutputs(t *testing.T) {
	p := GreenScreen()
	fgRef := ColorRef{Kind: RefANSI, ANSIIndex: 120}
	bgRef := ColorRef{Kind: RefANSI, ANSIIndex: 17}
	flags := CellFlags{Bold: true}

	fg1, bg1 := ResolveCellColors(p, fgRef, bgRef, flags)
	fg2, bg2 := ResolveCellColors(p, fgRef, bgRef, flags)
	if fg1 != fg2 || bg1 != bg2 {
		t.Errorf("non-deterministic resolution: (%v,%v) vs (%v,%v)", fg1, bg1, fg2, bg2)
	}
}
