package core

import (
	"context"
	"fmt"

	"labstock/pkg/domain"
)

// StockDiscardStateRule blocks illegal stock unit state transitions: statuses
// must be members of the valid set, the discarded flag must agree with the
// discarded status, and discarded is terminal.
func StockDiscardStateRule() domain.Rule {
	return stockDiscardStateRule{}
}

type stockDiscardStateRule struct{}

func (stockDiscardStateRule) Name() string { return "stock_discard_state" }

func (stockDiscardStateRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityStockUnit {
			continue
		}
		after, ok := change.After.(domain.StockUnit)
		if !ok {
			continue
		}

		if !after.CurrentStatus.Valid() {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stock_discard_state",
				Code:     domain.CodeInvalidTransition,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("stock unit %s is set to invalid status %s", after.ID, after.CurrentStatus),
				Entity:   domain.EntityStockUnit,
				EntityID: after.ID,
			})
			continue
		}

		discardedStatus := after.CurrentStatus == domain.StatusDiscarded
		if after.Discarded != discardedStatus {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stock_discard_state",
				Code:     domain.CodeInvalidTransition,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("stock unit %s discarded flag disagrees with status %s", after.ID, after.CurrentStatus),
				Entity:   domain.EntityStockUnit,
				EntityID: after.ID,
			})
			continue
		}

		before, ok := change.Before.(domain.StockUnit)
		if !ok {
			continue
		}
		if before.CurrentStatus == domain.StatusDiscarded && after.CurrentStatus != domain.StatusDiscarded {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "stock_discard_state",
				Code:     domain.CodeInvalidTransition,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("cannot move stock unit %s out of terminal status discarded", after.ID),
				Entity:   domain.EntityStockUnit,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
