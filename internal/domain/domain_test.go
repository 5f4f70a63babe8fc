package domain

import "testing"

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Fix bug":        "fix-bug",
		"  Leading/Tail ": "leading-tail",
		"already-slug":   "already-slug",
		"CAPS_and---dashes": "caps-and-dashes",
		"":               "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugIdempotent(t *testing.T) {
	inputs := []string{"Fix bug", "already-slug", "Weird!!! Name???", "---", "a b c"}
	for _, s := range inputs {
		once := Slug(s)
		twice := Slug(once)
		if once != twice {
			t.Errorf("Slug not idempotent for %q: Slug(s)=%q Slug(Slug(s))=%q", s, once, twice)
		}
	}
}

func TestWorkDirFor(t *testing.T) {
	got := WorkDirFor("/tmp/app", "Fix bug")
	want := "/tmp/app/fix-bug"
	if got != want {
		t.Errorf("WorkDirFor() = %q, want %q", got, want)
	}
}

func TestWorkDirForTrimsTrailingSlash(t *testing.T) {
	got := WorkDirFor("/tmp/app/", "Fix bug")
	want := "/tmp/app/fix-bug"
	if got != want {
		t.Errorf("WorkDirFor() = %q, want %q", got, want)
	}
}

func TestSessionNameForSlot(t *testing.T) {
	if got := SessionNameForSlot(0); got != "jefe-0" {
		t.Errorf("SessionNameForSlot(0) = %q, want jefe-0", got)
	}
	if got := SessionNameForSlot(42); got != "jefe-42" {
		t.Errorf("SessionNameForSlot(42) = %q, want jefe-42", got)
	}
}

func TestAgentHasPTYSlot(t *testing.T) {
	a := &Agent{PTYSlot: -1}
	if a.HasPTYSlot() {
		t.Errorf("HasPTYSlot() = true for negative slot")
	}
	if a.SessionName() != "" {
		t.Errorf("SessionName() = %q, want empty", a.SessionName())
	}

	a.PTYSlot = 3
	if !a.HasPTYSlot() {
		t.Errorf("HasPTYSlot() = false for slot 3")
	}
	if got := a.SessionName(); got != "jefe-3" {
		t.Errorf("SessionName() = %q, want jefe-3", got)
	}
}
