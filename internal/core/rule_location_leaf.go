package core

import (
	"context"
	"fmt"

	"labstock/pkg/domain"
)

// LocationLeafRule enforces the hierarchy invariants when the location tree
// changes: a node still holding non-discarded stock may not be removed, and a
// node holding stock may not gain children. Violations carry the offending
// location ids so callers can report exactly which nodes blocked the change.
func LocationLeafRule() domain.Rule {
	return locationLeafRule{}
}

type locationLeafRule struct{}

func (locationLeafRule) Name() string { return "location_leaf" }

func (locationLeafRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if !treeChanged(changes) {
		return res, nil
	}

	counts := domain.LocationChildCounts(view.LocationTree())

	// one violation per offending location, not per unit
	removed := make(map[string]struct{})
	nonLeaf := make(map[string]struct{})
	for _, unit := range view.ListStockUnits() {
		if unit.Discarded {
			continue
		}
		children, present := counts[unit.LocationID]
		switch {
		case !present:
			removed[unit.LocationID] = struct{}{}
		case children > 0:
			nonLeaf[unit.LocationID] = struct{}{}
		}
	}

	for id := range removed {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "location_leaf",
			Code:     domain.CodeDeleteBlockedStock,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("location %s still holds stock and cannot be removed", id),
			Entity:   domain.EntityLocationTree,
			EntityID: id,
		})
	}
	for id := range nonLeaf {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "location_leaf",
			Code:     domain.CodeLeafRuleViolation,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("location %s holds stock and cannot have children", id),
			Entity:   domain.EntityLocationTree,
			EntityID: id,
		})
	}
	return res, nil
}

func treeChanged(changes []domain.Change) bool {
	for _, change := range changes {
		if change.Entity == domain.EntityLocationTree {
			return true
		}
	}
	return false
}
