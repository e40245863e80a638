// Package fleet defines the canonical organizational sub-unit type. Every
// presentation form (abbreviation, legacy name, role code) is derived from
// the one enumerated Division value through total mapping functions, so a
// lookup either yields a value or fails at parse time.
package fleet

import "fmt"

// Division is the canonical fleet component tag used for role assignment
// and order targeting.
type Division string

const (
	DivisionCommand     Division = "command"
	DivisionOperations  Division = "operations"
	DivisionLogistics   Division = "logistics"
	DivisionIndustry    Division = "industry"
	DivisionSecurity    Division = "security"
	DivisionExploration Division = "exploration"
)

// All returns every division in stable order. Order targeting iterates this
// when issuing one division order per division.
func All() []Division {
	return []Division{
		DivisionCommand,
		DivisionOperations,
		DivisionLogistics,
		DivisionIndustry,
		DivisionSecurity,
		DivisionExploration,
	}
}

// ParseDivision validates a division tag.
func ParseDivision(s string) (Division, error) {
	switch Division(s) {
	case DivisionCommand, DivisionOperations, DivisionLogistics,
		DivisionIndustry, DivisionSecurity, DivisionExploration:
		return Division(s), nil
	}
	return "", fmt.Errorf("unknown division %q", s)
}

// DisplayName returns the human-facing name.
func (d Division) DisplayName() string {
	switch d {
	case DivisionCommand:
		return "Command"
	case DivisionOperations:
		return "Operations"
	case DivisionLogistics:
		return "Logistics"
	case DivisionIndustry:
		return "Industry"
	case DivisionSecurity:
		return "Security"
	case DivisionExploration:
		return "Exploration"
	}
	return string(d)
}

// Abbrev returns the short tag used in nicknames and embeds.
func (d Division) Abbrev() string {
	switch d {
	case DivisionCommand:
		return "CMD"
	case DivisionOperations:
		return "OPS"
	case DivisionLogistics:
		return "LOG"
	case DivisionIndustry:
		return "IND"
	case DivisionSecurity:
		return "SEC"
	case DivisionExploration:
		return "EXP"
	}
	return string(d)
}

// LegacyName returns the name used by older spreadsheet columns and roles.
// Kept for compatibility with the external store's historical schema.
func (d Division) LegacyName() string {
	switch d {
	case DivisionCommand:
		return "Fleet Command"
	case DivisionOperations:
		return "Tactical Operations"
	case DivisionLogistics:
		return "Supply & Transport"
	case DivisionIndustry:
		return "Mining & Industry"
	case DivisionSecurity:
		return "Fleet Security"
	case DivisionExploration:
		return "Pathfinders"
	}
	return string(d)
}

// Code returns the numeric role code used by the external store.
func (d Division) Code() int {
	switch d {
	case DivisionCommand:
		return 10
	case DivisionOperations:
		return 20
	case DivisionLogistics:
		return 30
	case DivisionIndustry:
		return 40
	case DivisionSecurity:
		return 50
	case DivisionExploration:
		return 60
	}
	return 0
}
