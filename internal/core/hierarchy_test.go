package core

import (
	"context"
	"errors"
	"testing"

	"labstock/pkg/domain"
)

func TestReplaceTreeMintsMissingIDs(t *testing.T) {
	svc, _ := newTestService(t)
	update, err := svc.ReplaceLocationTree(context.Background(), []LocationNode{{
		Label:    "Lab 330",
		Children: []LocationNode{{Label: "Shelf A"}, {ID: "not-a-real-id", Label: "Shelf B"}},
	}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	for _, id := range domain.FlattenLocationIDs(update.Tree) {
		if !domain.ValidLocationID(id) {
			t.Fatalf("minted id %q is malformed", id)
		}
	}
	if issued, ok := update.ReplacedIDs["not-a-real-id"]; !ok || !domain.ValidLocationID(issued) {
		t.Fatalf("replaced = %v", update.ReplacedIDs)
	}
}

func TestReplaceTreeKeepsExistingIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, shelfB := seedTree(t, svc)

	update, err := svc.ReplaceLocationTree(ctx, []LocationNode{{
		Label: "Lab 330 renamed",
		Children: []LocationNode{
			{ID: shelfA, Label: "Shelf A"},
			{ID: shelfB, Label: "Shelf B"},
			{Label: "Shelf C"},
		},
	}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	root := update.Tree[0]
	if root.Children[0].ID != shelfA || root.Children[1].ID != shelfB {
		t.Fatalf("existing ids were re-minted: %+v", root.Children)
	}
	if _, renamedRoot := update.ReplacedIDs[shelfA]; renamedRoot {
		t.Fatalf("replaced = %v", update.ReplacedIDs)
	}
}

func TestRemoveOccupiedLocationBlocked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, shelfB := seedTree(t, svc)
	product := seedProduct(t, svc, "Oscilloscope", domain.ModePropertyManaged)
	seedUnits(t, svc, product.ID, shelfA, 1)

	// drop shelf A while it still holds stock
	_, err := svc.ReplaceLocationTree(ctx, []LocationNode{{
		Label:    "Lab 330",
		Children: []LocationNode{{ID: shelfB, Label: "Shelf B"}},
	}})
	var blocked domain.RuleViolationError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v", err)
	}
	ids := blocked.Result.EntityIDs(domain.CodeDeleteBlockedStock)
	if len(ids) != 1 || ids[0] != shelfA {
		t.Fatalf("blocked ids = %v", ids)
	}

	// the tree must be untouched
	tree, err := svc.LocationTree(ctx)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree[0].Children) != 2 {
		t.Fatalf("tree changed: %+v", tree)
	}
}

func TestOccupiedLocationCannotGainChildren(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, shelfB := seedTree(t, svc)
	product := seedProduct(t, svc, "Oscilloscope", domain.ModePropertyManaged)
	seedUnits(t, svc, product.ID, shelfA, 1)

	_, err := svc.ReplaceLocationTree(ctx, []LocationNode{{
		Label: "Lab 330",
		Children: []LocationNode{
			{ID: shelfA, Label: "Shelf A", Children: []LocationNode{{Label: "Drawer 1"}}},
			{ID: shelfB, Label: "Shelf B"},
		},
	}})
	var blocked domain.RuleViolationError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v", err)
	}
	ids := blocked.Result.EntityIDs(domain.CodeLeafRuleViolation)
	if len(ids) != 1 || ids[0] != shelfA {
		t.Fatalf("blocked ids = %v", ids)
	}
}

func TestDuplicateLabelBlocked(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ReplaceLocationTree(context.Background(), []LocationNode{{
		Label:    "Lab 330",
		Children: []LocationNode{{Label: "Shelf"}, {Label: "Shelf"}},
	}})
	var blocked domain.RuleViolationError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v", err)
	}
	found := false
	for _, v := range blocked.Result.Violations {
		if v.Code == domain.CodeDuplicateLabel {
			found = true
		}
	}
	if !found {
		t.Fatalf("violations = %+v", blocked.Result.Violations)
	}
}

func TestLocationUsageReport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, shelfB := seedTree(t, svc)
	product := seedProduct(t, svc, "BNC Cable", domain.ModePooled)
	seedUnits(t, svc, product.ID, shelfA, 2)
	units := seedUnits(t, svc, product.ID, shelfB, 1)

	// discarded units do not count as occupancy
	if _, err := svc.Discard(ctx, []DiscardRequest{{StockID: units[0].ID, Operator: "lee"}}); err != nil {
		t.Fatalf("discard: %v", err)
	}

	report, err := svc.LocationUsageReport(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(report) != 1 || report[0].LocationID != shelfA || report[0].Units != 2 {
		t.Fatalf("report = %+v", report)
	}
	if len(report[0].Path) != 2 || report[0].Path[1] != "Shelf A" {
		t.Fatalf("path = %v", report[0].Path)
	}
}
