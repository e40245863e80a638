package cycle

import (
	"fmt"
	"time"

	"fleetcore/internal/types"
)

// The methods in this file are the mutation surface consumed by the command
// handler layer: direct order creation by authorized actors, progress
// updates, and status changes. Every mutation persists before returning.

// Order returns the order with the given id.
func (e *Engine) Order(id string) (*types.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orderLocked(id)
}

func (e *Engine) orderLocked(id string) (*types.Order, error) {
	o, ok := e.orders[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeInvariantNotFound,
			fmt.Sprintf("order %s not found", id), nil)
	}
	return o, nil
}

// ActiveOrders returns every non-terminal order.
func (e *Engine) ActiveOrders() []*types.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	var active []*types.Order
	for _, o := range e.orders {
		if !o.Status.Terminal() {
			active = append(active, o)
		}
	}
	return active
}

// Cycle returns a copy of the current monthly cycle state.
func (e *Engine) Cycle() types.MonthlyCycle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.cycle
}

// CreateOrder registers an order created directly by an authorized actor and
// persists it. Division orders attached to the active major order are linked
// on both sides before the save.
func (e *Engine) CreateOrder(o *types.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.orders[o.ID]; exists {
		return types.NewAppError(types.ErrCodeInvariantDuplicate,
			fmt.Sprintf("order %s already exists", o.ID), nil)
	}
	var parent *types.Order
	if o.Kind == types.OrderKindDivision && o.ParentOrderID != "" {
		p, ok := e.orders[o.ParentOrderID]
		if !ok || p.Kind != types.OrderKindMajor {
			return types.NewAppError(types.ErrCodeInvariantOrderLinkage,
				fmt.Sprintf("parent order %s is not a known major order", o.ParentOrderID), nil)
		}
		p.DivisionOrderIDs = append(p.DivisionOrderIDs, o.ID)
		parent = p
	}

	e.orders[o.ID] = o
	if err := e.store.SaveOrders(e.orders); err != nil {
		delete(e.orders, o.ID)
		if parent != nil {
			parent.DivisionOrderIDs = parent.DivisionOrderIDs[:len(parent.DivisionOrderIDs)-1]
		}
		return err
	}
	e.logger.Info("order created",
		"order_id", o.ID,
		"kind", string(o.Kind),
		"author", o.AuthorID,
	)
	return nil
}

// AddProgress appends a progress update to an order and persists it.
func (e *Engine) AddProgress(orderID, author, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.orderLocked(orderID)
	if err != nil {
		return err
	}
	if err := o.AddProgressUpdate(author, text); err != nil {
		return err
	}
	return e.store.SaveOrders(e.orders)
}

// SetOrderStatus applies a status change to an order and persists it.
func (e *Engine) SetOrderStatus(orderID string, to types.OrderStatus, actor, note string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.orderLocked(orderID)
	if err != nil {
		return err
	}
	if err := o.SetStatus(to, actor, note); err != nil {
		return err
	}
	return e.store.SaveOrders(e.orders)
}

// Cleanup archives expired orders older than the retention threshold and
// persists the pruned collection. Exposed for operator tooling; the run
// loop performs the same pass every iteration.
func (e *Engine) Cleanup(now time.Time) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, err := e.store.ArchiveExpiredOrders(e.orders, e.expiredRetention, now)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := e.store.SaveOrders(e.orders); err != nil {
		return ids, err
	}
	return ids, nil
}
