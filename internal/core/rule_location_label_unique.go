package core

import (
	"context"
	"fmt"

	"labstock/pkg/domain"
)

// LocationLabelUniqueRule blocks tree replacements that carry duplicate node
// labels anywhere in the hierarchy.
func LocationLabelUniqueRule() domain.Rule {
	return locationLabelUniqueRule{}
}

type locationLabelUniqueRule struct{}

func (locationLabelUniqueRule) Name() string { return "location_label_unique" }

func (locationLabelUniqueRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if !treeChanged(changes) {
		return res, nil
	}
	for _, label := range domain.DuplicateLabels(view.LocationTree()) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "location_label_unique",
			Code:     domain.CodeDuplicateLabel,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("label %q appears on more than one location", label),
			Entity:   domain.EntityLocationTree,
			EntityID: label,
		})
	}
	return res, nil
}
