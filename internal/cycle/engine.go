package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"fleetcore/internal/fleet"
	"fleetcore/internal/types"
)

// OrderStore abstracts the persistence operations the engine needs.
type OrderStore interface {
	LoadOrders() (map[string]*types.Order, error)
	SaveOrders(map[string]*types.Order) error
	LoadCycle() (*types.MonthlyCycle, error)
	SaveCycle(*types.MonthlyCycle) error
	ArchiveExpiredOrders(orders map[string]*types.Order, olderThan time.Duration, now time.Time) ([]string, error)
}

// Notifier announces newly issued orders and the monthly outcome.
// Failures are logged by the engine and never block a state transition.
type Notifier interface {
	AnnounceOrder(ctx context.Context, o *types.Order) error
	AnnounceMonthlyResult(ctx context.Context, result MonthlyResult) error
}

// MonthlyResult is the outcome of evaluating one monthly cycle.
type MonthlyResult struct {
	MajorOrderID  string
	Completed     int
	Total         int
	GoalMet       bool
	CompletionPct float64
}

// Config holds the dependencies and tunables for creating an Engine.
type Config struct {
	Store    OrderStore
	Library  *Library
	Notifier Notifier
	Logger   *slog.Logger

	// GoalThreshold is the number of completed division orders required for
	// monthly success. Defaults to 4 of the 6 issued each month.
	GoalThreshold int

	// ExpiredRetention is how long expired orders stay in the active
	// collection before the cleanup pass archives them. Defaults to 30 days.
	ExpiredRetention time.Duration

	Interval time.Duration    // iteration cadence; default 24h
	Clock    func() time.Time // injectable for tests
	Seed     uint64           // template selection seed; 0 means random
}

const weekLength = 7 * 24 * time.Hour

// Engine coordinates the 4-week order cycle. One iteration inspects the
// cycle state and performs whichever steps are due, persisting after each
// mutation so a crash mid-cycle resumes from the last durable state instead
// of restarting the month.
type Engine struct {
	store    OrderStore
	library  *Library
	notifier Notifier
	logger   *slog.Logger

	goalThreshold    int
	expiredRetention time.Duration
	interval         time.Duration
	clock            func() time.Time
	rng              *rand.Rand

	mu     sync.Mutex
	orders map[string]*types.Order
	cycle  *types.MonthlyCycle
	weekly *weeklyPool
}

// New creates an Engine and loads the order and cycle collections. Load
// failures are fatal startup errors.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.GoalThreshold
	if threshold <= 0 {
		threshold = 4
	}
	retention := cfg.ExpiredRetention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	orders, err := cfg.Store.LoadOrders()
	if err != nil {
		return nil, fmt.Errorf("cycle: loading orders: %w", err)
	}
	cycleState, err := cfg.Store.LoadCycle()
	if err != nil {
		return nil, fmt.Errorf("cycle: loading cycle state: %w", err)
	}

	return &Engine{
		store:            cfg.Store,
		library:          cfg.Library,
		notifier:         cfg.Notifier,
		logger:           logger,
		goalThreshold:    threshold,
		expiredRetention: retention,
		interval:         interval,
		clock:            clock,
		rng:              rng,
		orders:           orders,
		cycle:            cycleState,
		weekly:           newWeeklyPool(cfg.Library.Weekly, rng),
	}, nil
}

// Run executes Iterate on a fixed cadence until ctx is cancelled, then
// persists current state and exits cleanly.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("order cycle engine started",
		"interval", e.interval.String(),
		"goal_threshold", e.goalThreshold,
	)

	// Catch up immediately on start rather than waiting a full interval.
	e.Iterate(ctx, e.clock())

	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			err := e.persistAll()
			e.mu.Unlock()
			if err != nil {
				e.logger.Error("final cycle save on shutdown failed", "error", err)
			}
			e.logger.Info("order cycle engine stopped")
			return nil
		case <-ticker.C:
			e.Iterate(ctx, e.clock())
		}
	}
}

// Iterate performs one engine pass at the given instant. Each step persists
// its mutations before the next runs. Step errors are logged and the pass
// continues; the next iteration retries whatever is still due.
func (e *Engine) Iterate(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now = now.UTC()

	if !e.cycle.Active {
		e.cycle = types.NewMonthlyCycle(now)
		if err := e.store.SaveCycle(e.cycle); err != nil {
			e.logger.Error("persisting new cycle failed", "error", err)
			return
		}
		e.logger.Info("monthly cycle started", "month_index", e.cycle.MonthIndex)
	}

	e.expireOverdue(now)

	// Sync the week index to the wall clock before the phase checks, so a
	// pass early in a new week performs that week's actions immediately.
	e.advanceWeekIfDue(ctx, now)

	if e.cycle.ActiveMajorOrderID == "" {
		if err := e.startMajorOrder(ctx, now); err != nil {
			e.logger.Error("starting major order failed", "error", err)
		}
	}

	// Phase 2 is due from week 2 onward. The >= keeps a month whole when no
	// pass landed during week 2 itself and the week index caught up past it.
	if e.cycle.WeekIndex >= 2 && len(e.cycle.Phase2OrderIDs) == 0 {
		if err := e.createDivisionOrders(ctx, now, 2); err != nil {
			e.logger.Error("creating phase 2 division orders failed", "error", err)
		}
	}

	if !e.hasActiveWeeklyMission(now) {
		if err := e.startWeeklyMission(ctx, now); err != nil {
			e.logger.Error("starting weekly mission failed", "error", err)
		}
	}

	if e.cycle.WeekIndex == 3 {
		e.evaluateMonthIfDue(ctx, now)
	}

	if _, err := e.store.ArchiveExpiredOrders(e.orders, e.expiredRetention, now); err != nil {
		e.logger.Error("archiving expired orders failed", "error", err)
	} else if err := e.store.SaveOrders(e.orders); err != nil {
		e.logger.Error("persisting orders after archive failed", "error", err)
	}
}

// startMajorOrder creates and activates a major order plus its phase 1
// division orders. The major/division linkage is established on both sides
// before the first save, so the references are never observed half-built.
func (e *Engine) startMajorOrder(ctx context.Context, now time.Time) error {
	tpl := e.library.PickMajor(e.rng)

	major := types.NewOrder(types.OrderKindMajor, tpl.Title, "", now, now.Add(4*weekLength))
	major.Description = tpl.Description
	major.StrategicObjectives = tpl.StrategicObjectives
	major.ResourceRequirements = tpl.ResourceRequirements
	major.Priority = types.PriorityHigh
	if err := major.SetStatus(types.OrderActive, "", ""); err != nil {
		return err
	}
	e.orders[major.ID] = major
	e.cycle.ActiveMajorOrderID = major.ID

	if err := e.store.SaveOrders(e.orders); err != nil {
		return err
	}
	if err := e.store.SaveCycle(e.cycle); err != nil {
		return err
	}

	e.logger.Info("major order activated",
		"order_id", major.ID,
		"title", major.Title,
	)
	e.announce(ctx, major)

	return e.createDivisionOrders(ctx, now, 1)
}

// createDivisionOrders issues the phase's share of division orders, each
// thematically filtered against the major order's title. The roster is split
// across the two phases so every division receives exactly one order per
// month and the monthly total stays at six against the default threshold of
// four.
func (e *Engine) createDivisionOrders(ctx context.Context, now time.Time, phase int) error {
	major, ok := e.orders[e.cycle.ActiveMajorOrderID]
	if !ok {
		return types.NewAppError(types.ErrCodeInvariantOrderLinkage,
			"no active major order to attach division orders to", nil)
	}

	divisions := fleet.All()
	half := len(divisions) / 2
	if phase == 1 {
		divisions = divisions[:half]
	} else {
		divisions = divisions[half:]
	}

	end := now.Add(2 * weekLength)
	var ids []string
	for _, d := range divisions {
		tpl := e.library.PickDivision(d, major.Title, e.rng)

		o := types.NewOrder(types.OrderKindDivision, tpl.Title, "", now, end)
		o.Description = tpl.Description
		o.Objectives = tpl.Objectives
		o.RequiredPersonnel = tpl.RequiredPersonnel
		o.Division = d
		o.ParentOrderID = major.ID
		if err := o.SetStatus(types.OrderActive, "", ""); err != nil {
			return err
		}

		e.orders[o.ID] = o
		major.DivisionOrderIDs = append(major.DivisionOrderIDs, o.ID)
		ids = append(ids, o.ID)
	}

	if phase == 1 {
		e.cycle.Phase1OrderIDs = append(e.cycle.Phase1OrderIDs, ids...)
	} else {
		e.cycle.Phase2OrderIDs = append(e.cycle.Phase2OrderIDs, ids...)
	}

	if err := e.store.SaveOrders(e.orders); err != nil {
		return err
	}
	if err := e.store.SaveCycle(e.cycle); err != nil {
		return err
	}

	e.logger.Info("division orders issued",
		"phase", phase,
		"count", len(ids),
		"major_order_id", major.ID,
	)
	for _, id := range ids {
		e.announce(ctx, e.orders[id])
	}
	return nil
}

// hasActiveWeeklyMission reports whether any weekly mission order issued
// this month is still active and within its window.
func (e *Engine) hasActiveWeeklyMission(now time.Time) bool {
	for _, id := range e.cycle.WeeklyMissionIDs {
		o, ok := e.orders[id]
		if ok && o.Status == types.OrderActive && o.EndTime.After(now) {
			return true
		}
	}
	return false
}

// startWeeklyMission draws the next template from the rotating pool and
// activates it for one week.
func (e *Engine) startWeeklyMission(ctx context.Context, now time.Time) error {
	tpl := e.weekly.Draw()

	o := types.NewOrder(types.OrderKindMission, tpl.Title, "", now, now.Add(weekLength))
	o.Description = tpl.Description
	o.RequiredRoles = tpl.RequiredRoles
	o.Objectives = tpl.Objectives
	if tpl.MissionType != "" {
		mt, err := types.ParseMissionType(tpl.MissionType)
		if err != nil {
			return err
		}
		o.MissionType = mt
	}
	if err := o.SetStatus(types.OrderActive, "", ""); err != nil {
		return err
	}

	e.orders[o.ID] = o
	e.cycle.WeeklyMissionIDs = append(e.cycle.WeeklyMissionIDs, o.ID)

	if err := e.store.SaveOrders(e.orders); err != nil {
		return err
	}
	if err := e.store.SaveCycle(e.cycle); err != nil {
		return err
	}

	e.logger.Info("weekly mission issued", "order_id", o.ID, "title", o.Title)
	e.announce(ctx, o)
	return nil
}

// EvaluateMonth counts completed division orders across both phases against
// the total assigned. A division order missing from the active collection
// was archived after completing its lifecycle and counts as completed.
func (e *Engine) EvaluateMonth() MonthlyResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluateMonthLocked()
}

func (e *Engine) evaluateMonthLocked() MonthlyResult {
	ids := e.cycle.DivisionOrderIDs()
	completed := 0
	for _, id := range ids {
		o, ok := e.orders[id]
		if !ok || o.Status == types.OrderCompleted {
			completed++
		}
	}

	total := len(ids)
	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(completed)/float64(total)*1000) / 10
	}
	return MonthlyResult{
		MajorOrderID:  e.cycle.ActiveMajorOrderID,
		Completed:     completed,
		Total:         total,
		GoalMet:       completed >= e.goalThreshold,
		CompletionPct: pct,
	}
}

// evaluateMonthIfDue settles the major order in the cycle's last week. Once
// the major order is terminal the evaluation is done for this month and
// later iterations skip it.
func (e *Engine) evaluateMonthIfDue(ctx context.Context, now time.Time) {
	major, ok := e.orders[e.cycle.ActiveMajorOrderID]
	if !ok || major.Status.Terminal() {
		return
	}

	result := e.evaluateMonthLocked()
	if result.GoalMet {
		note := fmt.Sprintf("monthly goal met: %d of %d division orders completed (%.1f%%)",
			result.Completed, result.Total, result.CompletionPct)
		if err := major.SetStatus(types.OrderCompleted, "", note); err != nil {
			e.logger.Error("completing major order failed", "order_id", major.ID, "error", err)
			return
		}
	} else {
		shortfall := e.goalThreshold - result.Completed
		note := fmt.Sprintf("monthly goal missed by %d: %d of %d division orders completed (%.1f%%)",
			shortfall, result.Completed, result.Total, result.CompletionPct)
		if upErr := major.AddProgressUpdate("", note); upErr != nil {
			e.logger.Error("recording shortfall failed", "order_id", major.ID, "error", upErr)
		}
		if err := major.SetStatus(types.OrderExpired, "", note); err != nil {
			e.logger.Error("expiring major order failed", "order_id", major.ID, "error", err)
			return
		}
	}

	if err := e.store.SaveOrders(e.orders); err != nil {
		e.logger.Error("persisting orders after monthly evaluation failed", "error", err)
		return
	}

	e.logger.Info("monthly cycle evaluated",
		"major_order_id", major.ID,
		"completed", result.Completed,
		"total", result.Total,
		"goal_met", result.GoalMet,
	)
	if err := e.notifier.AnnounceMonthlyResult(ctx, result); err != nil {
		e.logger.Warn("monthly result announcement failed", "error", err)
	}
}

// advanceWeekIfDue advances the week index once the wall clock has crossed
// into the next week of the cycle. Wrapping past week 3 rolls the month:
// the phase lists, weekly mission list, and active major order reference are
// cleared so the next iteration begins a fresh month.
func (e *Engine) advanceWeekIfDue(ctx context.Context, now time.Time) {
	// Loop so a gap of several weeks catches up in one pass. A month
	// rollover resets CycleStart, which re-anchors the elapsed computation.
	for {
		elapsedWeeks := int(now.Sub(e.cycle.CycleStart) / weekLength)
		if elapsedWeeks <= e.cycle.WeekIndex {
			return
		}

		if e.cycle.WeekIndex == 3 {
			// Settle the month before the wrap clears the major order, in
			// case no pass ran during the final week.
			e.evaluateMonthIfDue(ctx, now)
		}

		monthCompleted := e.cycle.AdvanceWeek()
		if monthCompleted {
			e.cycle.ResetForNewMonth(now)
			e.logger.Info("monthly cycle rolled over", "month_index", e.cycle.MonthIndex)
		} else {
			e.logger.Info("cycle week advanced", "week_index", e.cycle.WeekIndex)
		}

		if err := e.store.SaveCycle(e.cycle); err != nil {
			e.logger.Error("persisting cycle after week advance failed", "error", err)
		}
	}
}

// expireOverdue transitions active orders past their end time to expired.
// The major order is exempt: its outcome is decided by monthly evaluation.
func (e *Engine) expireOverdue(now time.Time) {
	changed := false
	for _, o := range e.orders {
		if o.Status != types.OrderActive || o.Kind == types.OrderKindMajor {
			continue
		}
		if o.EndTime.Before(now) {
			if err := o.SetStatus(types.OrderExpired, "", "order window elapsed"); err != nil {
				e.logger.Error("expiring overdue order failed", "order_id", o.ID, "error", err)
				continue
			}
			changed = true
			e.logger.Info("order expired", "order_id", o.ID, "title", o.Title)
		}
	}
	if changed {
		if err := e.store.SaveOrders(e.orders); err != nil {
			e.logger.Error("persisting orders after expiry failed", "error", err)
		}
	}
}

// announce sends a fire-and-forget order notification.
func (e *Engine) announce(ctx context.Context, o *types.Order) {
	if err := e.notifier.AnnounceOrder(ctx, o); err != nil {
		e.logger.Warn("order announcement failed",
			"order_id", o.ID,
			"error", err,
		)
	}
}

// persistAll saves both collections and the cycle state.
func (e *Engine) persistAll() error {
	if err := e.store.SaveOrders(e.orders); err != nil {
		return err
	}
	return e.store.SaveCycle(e.cycle)
}
