// Package cycle implements the monthly order cycle engine: one major order
// per month, two phased batches of division orders, and a rotating weekly
// mission drawn from a template pool.
package cycle

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fleetcore/internal/fleet"
)

// MajorTemplate seeds an organization-wide major order.
type MajorTemplate struct {
	Title                string   `yaml:"title"`
	Description          string   `yaml:"description"`
	StrategicObjectives  []string `yaml:"strategic_objectives"`
	ResourceRequirements []string `yaml:"resource_requirements"`
	Keywords             []string `yaml:"keywords"`
}

// DivisionTemplate seeds a division order for one fleet component.
type DivisionTemplate struct {
	Title             string   `yaml:"title"`
	Description       string   `yaml:"description"`
	Objectives        []string `yaml:"objectives"`
	RequiredPersonnel int      `yaml:"required_personnel"`
	Keywords          []string `yaml:"keywords"`
}

// WeeklyTemplate seeds a weekly mission order.
type WeeklyTemplate struct {
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	MissionType   string   `yaml:"mission_type"`
	RequiredRoles []string `yaml:"required_roles"`
	Objectives    []string `yaml:"objectives"`
}

// Library is the full template set, loaded once at startup from YAML.
type Library struct {
	Major    []MajorTemplate               `yaml:"major_orders"`
	Division map[string][]DivisionTemplate `yaml:"division_orders"`
	Weekly   []WeeklyTemplate              `yaml:"weekly_missions"`
}

// LoadLibrary reads and validates the template library file. Validation
// failures are fatal: the engine cannot run a cycle without a usable pool
// for every division.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template library %s: %w", path, err)
	}
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parsing template library %s: %w", path, err)
	}
	if err := lib.Validate(); err != nil {
		return nil, fmt.Errorf("template library %s: %w", path, err)
	}
	return &lib, nil
}

// Validate checks that every pool the engine draws from is usable.
func (l *Library) Validate() error {
	if len(l.Major) == 0 {
		return fmt.Errorf("no major order templates")
	}
	if len(l.Weekly) == 0 {
		return fmt.Errorf("no weekly mission templates")
	}
	for tag, pool := range l.Division {
		if _, err := l.divisionFor(tag); err != nil {
			return err
		}
		if len(pool) == 0 {
			return fmt.Errorf("empty division order pool for %q", tag)
		}
	}
	for _, d := range fleet.All() {
		if len(l.Division[string(d)]) == 0 {
			return fmt.Errorf("no division order templates for %s", d)
		}
	}
	return nil
}

func (l *Library) divisionFor(tag string) (fleet.Division, error) {
	d, err := fleet.ParseDivision(tag)
	if err != nil {
		return "", fmt.Errorf("division order pool key: %w", err)
	}
	return d, nil
}

// PickMajor selects a major order template at random.
func (l *Library) PickMajor(rng *rand.Rand) MajorTemplate {
	return l.Major[rng.IntN(len(l.Major))]
}

// PickDivision selects a division order template thematically matched to the
// active major order's title: any template sharing a keyword with a word of
// the title is a candidate. When nothing matches, the choice falls back to
// the division's full pool.
func (l *Library) PickDivision(d fleet.Division, majorTitle string, rng *rand.Rand) DivisionTemplate {
	pool := l.Division[string(d)]

	titleWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(majorTitle)) {
		titleWords[strings.Trim(w, ".,:;!?")] = true
	}

	var thematic []DivisionTemplate
	for _, t := range pool {
		for _, kw := range t.Keywords {
			if titleWords[strings.ToLower(kw)] {
				thematic = append(thematic, t)
				break
			}
		}
	}

	if len(thematic) > 0 {
		return thematic[rng.IntN(len(thematic))]
	}
	return pool[rng.IntN(len(pool))]
}

// weeklyPool is a shuffled draw-without-replacement pool over the weekly
// mission templates, refilled from the full set when exhausted.
type weeklyPool struct {
	remaining []WeeklyTemplate
	source    []WeeklyTemplate
	rng       *rand.Rand
}

func newWeeklyPool(source []WeeklyTemplate, rng *rand.Rand) *weeklyPool {
	return &weeklyPool{source: source, rng: rng}
}

// Draw returns the next template, reshuffling the full set first when the
// pool has run dry.
func (p *weeklyPool) Draw() WeeklyTemplate {
	if len(p.remaining) == 0 {
		p.remaining = make([]WeeklyTemplate, len(p.source))
		copy(p.remaining, p.source)
		p.rng.Shuffle(len(p.remaining), func(i, j int) {
			p.remaining[i], p.remaining[j] = p.remaining[j], p.remaining[i]
		})
	}
	t := p.remaining[len(p.remaining)-1]
	p.remaining = p.remaining[:len(p.remaining)-1]
	return t
}
