package reservation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/metrics"
)

// Desired is one reservation a line should hold after reconciliation.
// LotID pins a specific lot; otherwise the lot is chosen among those of (TagTypeID, AreaID).
type Desired struct {
	TagTypeID        uuid.UUID
	LotID            *uuid.UUID
	AreaID           *uuid.UUID
	AreaAssignmentID *uuid.UUID
	Quantity         int
}

// LineRef identifies the line whose reservations are being reconciled.
type LineRef struct {
	OrderID uuid.UUID
	LineID  uuid.UUID
}

// Plan summarizes what a reconciliation applied.
type Plan struct {
	Consumed int
	Released int
	Created  int
	Updated  int
	Deleted  int
}

// LedgerOps is the number of consume and release operations applied to lots.
func (p Plan) LedgerOps() int {
	return p.Consumed + p.Released
}

// Engine moves lines' reservations from their previous sets to desired sets by
// touching only the true per-lot delta.
type Engine interface {
	Reconcile(ctx context.Context, tx *gorm.DB, line LineRef, previous []models.TagAssignment, desired []Desired) (Plan, error)
	ReconcileLines(ctx context.Context, tx *gorm.DB, changes []LineChange) (Plan, error)
	ReleaseAll(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (Plan, error)
}

// LineChange is one line's move from the reservations it holds to a desired set.
type LineChange struct {
	Line     LineRef
	Previous []models.TagAssignment
	Desired  []Desired
}

// EngineParams wires the reconciliation engine.
type EngineParams struct {
	Repo    Repository
	Metrics *metrics.ReservationMetrics
}

type engine struct {
	repo    Repository
	metrics *metrics.ReservationMetrics
}

// NewEngine builds a reconciliation engine.
func NewEngine(params EngineParams) (Engine, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	return &engine{repo: params.Repo, metrics: params.Metrics}, nil
}

type lotKey struct {
	tagTypeID uuid.UUID
	lotID     uuid.UUID
}

type areaKey struct {
	tagTypeID uuid.UUID
	areaID    uuid.UUID
}

type wanted struct {
	quantity         int
	areaID           *uuid.UUID
	areaAssignmentID *uuid.UUID
}

type pending struct {
	key              areaKey
	quantity         int
	areaAssignmentID *uuid.UUID
}

type held struct {
	rows     []models.TagAssignment
	quantity int
}

// lineState is one line's share of a batch.
type lineState struct {
	ref       LineRef
	prev      map[lotKey]*held
	want      map[lotKey]*wanted
	residuals []pending
}

func (e *engine) Reconcile(ctx context.Context, tx *gorm.DB, line LineRef, previous []models.TagAssignment, desired []Desired) (Plan, error) {
	return e.ReconcileLines(ctx, tx, []LineChange{{Line: line, Previous: previous, Desired: desired}})
}

// ReconcileLines applies every change as one batch. Lot deltas are netted across all
// lines before anything is written, so tags moving between lines of the same order
// never need free stock.
func (e *engine) ReconcileLines(ctx context.Context, tx *gorm.DB, changes []LineChange) (Plan, error) {
	if len(changes) == 0 {
		return Plan{}, nil
	}
	repo := e.repo.WithTx(tx)

	states := make([]*lineState, 0, len(changes))
	seenLines := make(map[uuid.UUID]struct{}, len(changes))
	ids := make(map[uuid.UUID]struct{})
	for _, change := range changes {
		if change.Line.LineID == uuid.Nil || change.Line.OrderID == uuid.Nil {
			return Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "line reference is required")
		}
		if _, dup := seenLines[change.Line.LineID]; dup {
			return Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "line is reconciled more than once").
				WithDetails(map[string]any{"line_id": change.Line.LineID})
		}
		seenLines[change.Line.LineID] = struct{}{}

		explicit, unpinned, err := normalize(change.Desired)
		if err != nil {
			return Plan{}, err
		}
		state := &lineState{
			ref:  change.Line,
			prev: groupPrevious(change.Previous),
			want: make(map[lotKey]*wanted, len(explicit)),
		}
		for key, entry := range explicit {
			copied := *entry
			state.want[key] = &copied
		}
		state.residuals = bindToPrevious(unpinned, state.prev, state.want)

		for key := range state.prev {
			ids[key.lotID] = struct{}{}
		}
		for key := range state.want {
			ids[key.lotID] = struct{}{}
		}
		for _, r := range state.residuals {
			candidates, err := repo.LotIDsFor(ctx, r.key.tagTypeID, r.key.areaID)
			if err != nil {
				return Plan{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tag lots")
			}
			for _, id := range candidates {
				ids[id] = struct{}{}
			}
		}
		states = append(states, state)
	}

	lots, err := repo.LockLots(ctx, sortedIDs(ids))
	if err != nil {
		return Plan{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock tag lots")
	}
	lotByID := make(map[uuid.UUID]models.TagLot, len(lots))
	for _, lot := range lots {
		lotByID[lot.ID] = lot
	}

	for _, state := range states {
		if err := checkLots(state, lotByID); err != nil {
			return Plan{}, err
		}
	}

	net := make(map[uuid.UUID]int, len(lotByID))
	for _, state := range states {
		for key, entry := range state.want {
			net[key.lotID] += entry.quantity
		}
		for key, group := range state.prev {
			net[key.lotID] -= group.quantity
		}
	}

	for _, state := range states {
		for _, r := range state.residuals {
			lot, ok := pickLot(lots, r.key, net)
			if !ok {
				e.metrics.IncRejected()
				return Plan{}, insufficient(r.key.tagTypeID, r.key.areaID, nil, 0, r.quantity)
			}
			key := lotKey{tagTypeID: r.key.tagTypeID, lotID: lot.ID}
			entry, exists := state.want[key]
			if !exists {
				entry = &wanted{}
				state.want[key] = entry
			}
			entry.quantity += r.quantity
			if r.areaAssignmentID != nil {
				entry.areaAssignmentID = r.areaAssignmentID
			}
			net[lot.ID] += r.quantity
		}
	}

	for _, id := range sortedIDs(keysOf(net)) {
		lot := lotByID[id]
		if net[id] > 0 && lot.Available() < net[id] {
			key := lotKey{tagTypeID: lot.TagTypeID, lotID: lot.ID}
			var heldQty, requested int
			for _, state := range states {
				if group, ok := state.prev[key]; ok {
					heldQty += group.quantity
				}
				if entry, ok := state.want[key]; ok {
					requested += entry.quantity
				}
			}
			e.metrics.IncRejected()
			return Plan{}, insufficient(lot.TagTypeID, lot.AreaID, &lot.ID, lot.Available()+heldQty, requested)
		}
	}

	plan := Plan{}
	for _, state := range states {
		for _, key := range unionKeys(state.prev, state.want) {
			group, hadPrev := state.prev[key]
			entry, hasWant := state.want[key]
			switch {
			case hadPrev && hasWant:
				if entry.quantity > group.quantity {
					plan.Consumed++
				} else if entry.quantity < group.quantity {
					plan.Released++
				}
			case hadPrev:
				plan.Released++
			case hasWant:
				plan.Consumed++
			}
		}
	}

	for _, id := range sortedIDs(keysOf(net)) {
		if err := repo.ApplyDelta(ctx, id, net[id]); err != nil {
			if errors.Is(err, errLedgerGuard) {
				lot := lotByID[id]
				e.metrics.IncRejected()
				return Plan{}, insufficient(lot.TagTypeID, lot.AreaID, &lot.ID, lot.Available(), net[id])
			}
			return Plan{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tag lot")
		}
	}

	var deletes []uuid.UUID
	for _, state := range states {
		rows, err := writeRows(ctx, repo, state, lotByID)
		if err != nil {
			return Plan{}, err
		}
		plan.Created += rows.created
		plan.Updated += rows.updated
		deletes = append(deletes, rows.deletes...)
	}
	if err := repo.DeleteAssignments(ctx, deletes); err != nil {
		return Plan{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete tag reservations")
	}
	plan.Deleted = len(deletes)

	e.metrics.AddConsumed(plan.Consumed)
	e.metrics.AddReleased(plan.Released)
	return plan, nil
}

// checkLots verifies that every lot a line holds or pins was locked and matches the
// requested tag type and area.
func checkLots(state *lineState, lotByID map[uuid.UUID]models.TagLot) error {
	for key := range state.prev {
		if _, ok := lotByID[key.lotID]; !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reserved tag lot not found").
				WithDetails(map[string]any{"lot_id": key.lotID})
		}
	}
	for key, entry := range state.want {
		lot, ok := lotByID[key.lotID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tag lot not found").
				WithDetails(map[string]any{"lot_id": key.lotID})
		}
		if lot.TagTypeID != key.tagTypeID {
			return pkgerrors.New(pkgerrors.CodeValidation, "tag lot belongs to another tag type").
				WithDetails(map[string]any{"lot_id": lot.ID, "tag_type_id": key.tagTypeID})
		}
		if entry.areaID != nil && *entry.areaID != lot.AreaID {
			return pkgerrors.New(pkgerrors.CodeValidation, "tag lot belongs to another area").
				WithDetails(map[string]any{"lot_id": lot.ID, "area_id": *entry.areaID})
		}
	}
	return nil
}

type rowChanges struct {
	created int
	updated int
	deletes []uuid.UUID
}

// writeRows brings one line's reservation rows in line with its final wanted set.
func writeRows(ctx context.Context, repo Repository, state *lineState, lotByID map[uuid.UUID]models.TagLot) (rowChanges, error) {
	out := rowChanges{}
	for _, key := range unionKeys(state.prev, state.want) {
		group, hadPrev := state.prev[key]
		entry, hasWant := state.want[key]
		switch {
		case hadPrev && hasWant:
			keep := group.rows[0]
			for _, extra := range group.rows[1:] {
				out.deletes = append(out.deletes, extra.ID)
			}
			areaAssignmentID := entry.areaAssignmentID
			if areaAssignmentID == nil {
				areaAssignmentID = keep.AreaAssignmentID
			}
			if len(group.rows) == 1 && entry.quantity == keep.Quantity && sameID(areaAssignmentID, keep.AreaAssignmentID) {
				continue
			}
			if err := repo.UpdateAssignment(ctx, keep.ID, entry.quantity, areaAssignmentID); err != nil {
				return out, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tag reservation")
			}
			out.updated++
		case hadPrev:
			for _, row := range group.rows {
				out.deletes = append(out.deletes, row.ID)
			}
		case hasWant:
			assignment := &models.TagAssignment{
				LineID:           state.ref.LineID,
				OrderID:          state.ref.OrderID,
				TagTypeID:        key.tagTypeID,
				LotID:            key.lotID,
				AreaID:           lotByID[key.lotID].AreaID,
				AreaAssignmentID: entry.areaAssignmentID,
				Quantity:         entry.quantity,
			}
			if err := repo.CreateAssignment(ctx, assignment); err != nil {
				return out, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tag reservation")
			}
			out.created++
		}
	}
	return out, nil
}

func (e *engine) ReleaseAll(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (Plan, error) {
	assignments, err := e.repo.WithTx(tx).ListByOrder(ctx, orderID)
	if err != nil {
		return Plan{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order reservations")
	}
	byLine := make(map[uuid.UUID][]models.TagAssignment)
	lineIDs := make(map[uuid.UUID]struct{})
	for _, assignment := range assignments {
		byLine[assignment.LineID] = append(byLine[assignment.LineID], assignment)
		lineIDs[assignment.LineID] = struct{}{}
	}
	changes := make([]LineChange, 0, len(lineIDs))
	for _, lineID := range sortedIDs(lineIDs) {
		changes = append(changes, LineChange{Line: LineRef{OrderID: orderID, LineID: lineID}, Previous: byLine[lineID]})
	}
	return e.ReconcileLines(ctx, tx, changes)
}

// normalize validates the desired set and merges entries that target the same lot, or the
// same (tag type, area) when no lot is pinned. Zero quantities are dropped.
func normalize(desired []Desired) (map[lotKey]*wanted, []*pending, error) {
	explicit := make(map[lotKey]*wanted)
	byArea := make(map[areaKey]*pending)
	var unpinned []*pending
	for i, d := range desired {
		if d.Quantity < 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "tag quantity must not be negative").
				WithDetails(map[string]any{"index": i, "quantity": d.Quantity})
		}
		if d.TagTypeID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "tag type is required").
				WithDetails(map[string]any{"index": i})
		}
		if d.Quantity == 0 {
			continue
		}
		if d.LotID != nil && *d.LotID != uuid.Nil {
			key := lotKey{tagTypeID: d.TagTypeID, lotID: *d.LotID}
			entry, ok := explicit[key]
			if !ok {
				entry = &wanted{areaID: d.AreaID}
				explicit[key] = entry
			}
			entry.quantity += d.Quantity
			if d.AreaAssignmentID != nil {
				entry.areaAssignmentID = d.AreaAssignmentID
			}
			continue
		}
		if d.AreaID == nil || *d.AreaID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "tag reservation requires a lot or an area").
				WithDetails(map[string]any{"index": i, "tag_type_id": d.TagTypeID})
		}
		key := areaKey{tagTypeID: d.TagTypeID, areaID: *d.AreaID}
		entry, ok := byArea[key]
		if !ok {
			entry = &pending{key: key}
			byArea[key] = entry
			unpinned = append(unpinned, entry)
		}
		entry.quantity += d.Quantity
		if d.AreaAssignmentID != nil {
			entry.areaAssignmentID = d.AreaAssignmentID
		}
	}
	return explicit, unpinned, nil
}

func groupPrevious(previous []models.TagAssignment) map[lotKey]*held {
	groups := make(map[lotKey]*held, len(previous))
	for _, row := range previous {
		key := lotKey{tagTypeID: row.TagTypeID, lotID: row.LotID}
		group, ok := groups[key]
		if !ok {
			group = &held{}
			groups[key] = group
		}
		group.rows = append(group.rows, row)
		group.quantity += row.Quantity
	}
	return groups
}

// bindToPrevious maps unpinned entries onto lots the line already holds for the same tag
// type and area, up to the quantity held there, so repeating a request is a no-op.
// Whatever cannot be bound is returned for lot selection.
func bindToPrevious(unpinned []*pending, prev map[lotKey]*held, want map[lotKey]*wanted) []pending {
	var residuals []pending
	for _, p := range unpinned {
		type candidate struct {
			key lotKey
			qty int
		}
		var candidates []candidate
		for key, group := range prev {
			if key.tagTypeID != p.key.tagTypeID || group.rows[0].AreaID != p.key.areaID {
				continue
			}
			candidates = append(candidates, candidate{key: key, qty: group.quantity})
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].qty != candidates[j].qty {
				return candidates[i].qty > candidates[j].qty
			}
			return bytes.Compare(candidates[i].key.lotID[:], candidates[j].key.lotID[:]) < 0
		})

		remaining := p.quantity
		for _, c := range candidates {
			if remaining == 0 {
				break
			}
			entry, ok := want[c.key]
			if !ok {
				entry = &wanted{}
			}
			room := c.qty - entry.quantity
			if room <= 0 {
				continue
			}
			take := min(room, remaining)
			entry.quantity += take
			if p.areaAssignmentID != nil {
				entry.areaAssignmentID = p.areaAssignmentID
			}
			want[c.key] = entry
			remaining -= take
		}
		if remaining > 0 {
			residuals = append(residuals, pending{key: p.key, quantity: remaining, areaAssignmentID: p.areaAssignmentID})
		}
	}
	return residuals
}

// pickLot chooses the lot of (tag type, area) with the most quantity still free after the
// deltas already planned in this batch. Ties go to the oldest lot.
func pickLot(lots []models.TagLot, key areaKey, net map[uuid.UUID]int) (models.TagLot, bool) {
	var best models.TagLot
	found := false
	bestFree := 0
	for _, lot := range lots {
		if lot.TagTypeID != key.tagTypeID || lot.AreaID != key.areaID {
			continue
		}
		free := lot.Available() - net[lot.ID]
		if !found ||
			free > bestFree ||
			(free == bestFree && lot.CreatedAt.Before(best.CreatedAt)) {
			best = lot
			bestFree = free
			found = true
		}
	}
	return best, found
}

func insufficient(tagTypeID, areaID uuid.UUID, lotID *uuid.UUID, available, requested int) error {
	details := map[string]any{
		"tag_type_id": tagTypeID,
		"area_id":     areaID,
		"available":   available,
		"requested":   requested,
	}
	if lotID != nil {
		details["lot_id"] = *lotID
	}
	return pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient tags available in lot").WithDetails(details)
}

func unionKeys(prev map[lotKey]*held, want map[lotKey]*wanted) []lotKey {
	seen := make(map[lotKey]struct{}, len(prev)+len(want))
	keys := make([]lotKey, 0, len(prev)+len(want))
	for key := range prev {
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for key := range want {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := bytes.Compare(keys[i].lotID[:], keys[j].lotID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(keys[i].tagTypeID[:], keys[j].tagTypeID[:]) < 0
	})
	return keys
}

func keysOf[V any](m map[uuid.UUID]V) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(m))
	for id := range m {
		out[id] = struct{}{}
	}
	return out
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
