package cycle

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"fleetcore/internal/fleet"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 1))
}

func TestLoadLibrary_ValidFile(t *testing.T) {
	content := `
major_orders:
  - title: Operation Supply Line
    description: Keep the lanes open
    strategic_objectives: [secure routes]
    keywords: [supply, trade]
division_orders:
  command: [{title: Coordinate the fleet}]
  operations: [{title: Run patrols}]
  logistics: [{title: Haul cargo, keywords: [supply]}]
  industry: [{title: Mine quantainium}]
  security: [{title: Escort convoys}]
  exploration: [{title: Chart routes}]
weekly_missions:
  - title: Weekly Cargo Haul
    mission_type: cargo
`
	path := filepath.Join(t.TempDir(), "orders.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lib, err := LoadLibrary(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lib.Major) != 1 || lib.Major[0].Title != "Operation Supply Line" {
		t.Errorf("major templates = %+v", lib.Major)
	}
	if len(lib.Division) != 6 {
		t.Errorf("division pools = %d, want 6", len(lib.Division))
	}
}

func TestLoadLibrary_MissingFile(t *testing.T) {
	if _, err := LoadLibrary(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestValidate_Failures(t *testing.T) {
	full := func() *Library { return testLibrary() }

	tests := []struct {
		name   string
		mutate func(*Library)
	}{
		{"no major templates", func(l *Library) { l.Major = nil }},
		{"no weekly templates", func(l *Library) { l.Weekly = nil }},
		{"missing division pool", func(l *Library) { delete(l.Division, string(fleet.DivisionSecurity)) }},
		{"empty division pool", func(l *Library) { l.Division[string(fleet.DivisionIndustry)] = nil }},
		{"unknown division key", func(l *Library) { l.Division["marines"] = []DivisionTemplate{{Title: "x"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := full()
			tt.mutate(lib)
			if err := lib.Validate(); err == nil {
				t.Error("invalid library accepted")
			}
		})
	}
}

func TestPickDivision_ThematicMatch(t *testing.T) {
	lib := &Library{
		Division: map[string][]DivisionTemplate{
			string(fleet.DivisionLogistics): {
				{Title: "Generic Haul"},
				{Title: "Supply Run", Keywords: []string{"supply"}},
			},
		},
	}

	// Every draw against a matching title must land on the keyword template.
	rng := testRNG()
	for i := 0; i < 20; i++ {
		got := lib.PickDivision(fleet.DivisionLogistics, "Operation Supply Line", rng)
		if got.Title != "Supply Run" {
			t.Fatalf("draw %d = %q, want the keyword-matched template", i, got.Title)
		}
	}
}

func TestPickDivision_FallbackToFullPool(t *testing.T) {
	lib := &Library{
		Division: map[string][]DivisionTemplate{
			string(fleet.DivisionLogistics): {
				{Title: "Generic Haul"},
				{Title: "Supply Run", Keywords: []string{"supply"}},
			},
		},
	}

	rng := testRNG()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[lib.PickDivision(fleet.DivisionLogistics, "Operation Iron Wall", rng).Title] = true
	}
	if len(seen) != 2 {
		t.Errorf("fallback draws covered %d templates, want the full pool of 2", len(seen))
	}
}

// The weekly pool draws without replacement: a full cycle through the pool
// sees every template exactly once before any repeats.
func TestWeeklyPool_DrawWithoutReplacement(t *testing.T) {
	source := []WeeklyTemplate{
		{Title: "A"}, {Title: "B"}, {Title: "C"}, {Title: "D"},
	}
	p := newWeeklyPool(source, testRNG())

	seen := make(map[string]int)
	for i := 0; i < len(source); i++ {
		seen[p.Draw().Title]++
	}
	for title, n := range seen {
		if n != 1 {
			t.Errorf("template %q drawn %d times in one cycle", title, n)
		}
	}
	if len(seen) != len(source) {
		t.Errorf("first cycle covered %d of %d templates", len(seen), len(source))
	}

	// The pool refills for the next cycle.
	next := p.Draw()
	if next.Title == "" {
		t.Error("refilled pool returned empty template")
	}
}
