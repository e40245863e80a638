package types

import "time"

// MonthlyCycle tracks the 4-week coordination window binding one major order
// to two phased batches of division orders and rotating weekly missions.
type MonthlyCycle struct {
	// WeekIndex runs 0-3 and wraps; wrapping also advances MonthIndex.
	WeekIndex  int
	MonthIndex int // 0-11

	ActiveMajorOrderID string

	// Phase1OrderIDs covers weeks 1-2, Phase2OrderIDs weeks 3-4. Ids stay in
	// these lists even after the underlying order is archived, so monthly
	// evaluation can count them.
	Phase1OrderIDs []string
	Phase2OrderIDs []string

	// WeeklyMissionIDs lists the weekly mission orders issued this month.
	WeeklyMissionIDs []string

	CycleStart time.Time
	Active     bool
}

// NewMonthlyCycle starts a cycle at the given instant, aligned to its
// calendar month index.
func NewMonthlyCycle(start time.Time) *MonthlyCycle {
	start = start.UTC()
	return &MonthlyCycle{
		MonthIndex: int(start.Month()) - 1,
		CycleStart: start,
		Active:     true,
	}
}

// AdvanceWeek increments the week index modulo 4. Wrapping from week 3 to
// week 0 advances the month modulo 12 and returns true, signaling that the
// caller must reset the cycle before the next month begins.
func (c *MonthlyCycle) AdvanceWeek() (monthCompleted bool) {
	c.WeekIndex = (c.WeekIndex + 1) % 4
	if c.WeekIndex == 0 {
		c.MonthIndex = (c.MonthIndex + 1) % 12
		return true
	}
	return false
}

// ResetForNewMonth clears the phase lists, weekly mission list, and active
// major order reference. Must be called after AdvanceWeek reports month
// completion and before the next cycle iteration.
func (c *MonthlyCycle) ResetForNewMonth(now time.Time) {
	c.ActiveMajorOrderID = ""
	c.Phase1OrderIDs = nil
	c.Phase2OrderIDs = nil
	c.WeeklyMissionIDs = nil
	c.CycleStart = now.UTC()
}

// DivisionOrderIDs returns the ids of both phases combined.
func (c *MonthlyCycle) DivisionOrderIDs() []string {
	ids := make([]string, 0, len(c.Phase1OrderIDs)+len(c.Phase2OrderIDs))
	ids = append(ids, c.Phase1OrderIDs...)
	ids = append(ids, c.Phase2OrderIDs...)
	return ids
}

// CycleRecord is the flat persistence representation of a MonthlyCycle.
type CycleRecord struct {
	WeekIndex          int       `json:"week_index"`
	MonthIndex         int       `json:"month_index"`
	ActiveMajorOrderID string    `json:"active_major_order_id,omitempty"`
	Phase1OrderIDs     []string  `json:"phase1_order_ids,omitempty"`
	Phase2OrderIDs     []string  `json:"phase2_order_ids,omitempty"`
	WeeklyMissionIDs   []string  `json:"weekly_mission_ids,omitempty"`
	CycleStart         time.Time `json:"cycle_start"`
	Active             bool      `json:"active"`
}

// ToRecord maps the cycle to its persistence representation.
func (c *MonthlyCycle) ToRecord() CycleRecord {
	return CycleRecord{
		WeekIndex:          c.WeekIndex,
		MonthIndex:         c.MonthIndex,
		ActiveMajorOrderID: c.ActiveMajorOrderID,
		Phase1OrderIDs:     c.Phase1OrderIDs,
		Phase2OrderIDs:     c.Phase2OrderIDs,
		WeeklyMissionIDs:   c.WeeklyMissionIDs,
		CycleStart:         c.CycleStart.UTC(),
		Active:             c.Active,
	}
}

// CycleFromRecord reconstructs a MonthlyCycle, validating index ranges.
func CycleFromRecord(r CycleRecord) (*MonthlyCycle, error) {
	if r.WeekIndex < 0 || r.WeekIndex > 3 {
		return nil, NewAppError(ErrCodeDataIntegrity, "cycle record week index out of range", nil)
	}
	if r.MonthIndex < 0 || r.MonthIndex > 11 {
		return nil, NewAppError(ErrCodeDataIntegrity, "cycle record month index out of range", nil)
	}
	return &MonthlyCycle{
		WeekIndex:          r.WeekIndex,
		MonthIndex:         r.MonthIndex,
		ActiveMajorOrderID: r.ActiveMajorOrderID,
		Phase1OrderIDs:     r.Phase1OrderIDs,
		Phase2OrderIDs:     r.Phase2OrderIDs,
		WeeklyMissionIDs:   r.WeeklyMissionIDs,
		CycleStart:         r.CycleStart.UTC(),
		Active:             r.Active,
	}, nil
}
