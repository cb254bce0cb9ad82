package core

import (
	"context"

	"labstock/pkg/domain"
)

// LocationTreeUpdate is the result of replacing the hierarchy. ReplacedIDs
// maps client-side ids that were re-minted during normalization to their
// stored ids, so callers can reconcile references.
type LocationTreeUpdate struct {
	Tree        []LocationNode    `json:"tree"`
	ReplacedIDs map[string]string `json:"replaced_ids,omitempty"`
}

// ReplaceLocationTree swaps the whole location hierarchy for the supplied
// tree. New or malformed node ids are re-minted; commit-time rules block the
// replacement when it would orphan stock or put stock on a non-leaf node.
func (s *Service) ReplaceLocationTree(ctx context.Context, tree []LocationNode) (LocationTreeUpdate, error) {
	var update LocationTreeUpdate
	_, err := s.run(ctx, "replace_location_tree", func(tx Transaction) error {
		snap := tx.Snapshot()
		prevIDs := map[string]struct{}{}
		for _, id := range domain.FlattenLocationIDs(snap.LocationTree()) {
			prevIDs[id] = struct{}{}
		}
		next := domain.CloneLocationTree(tree)
		replaced := domain.NormalizeLocationTree(next, prevIDs, s.now())
		if err := tx.ReplaceLocationTree(next); err != nil {
			return err
		}
		update = LocationTreeUpdate{Tree: next, ReplacedIDs: replaced}
		return nil
	})
	if err != nil {
		return LocationTreeUpdate{}, err
	}
	return update, nil
}

// LocationTree returns the current hierarchy.
func (s *Service) LocationTree(ctx context.Context) ([]LocationNode, error) {
	var tree []LocationNode
	err := s.view(ctx, "location_tree", func(v TransactionView) error {
		tree = v.LocationTree()
		return nil
	})
	return tree, err
}

// LocationUsage reports, per location id, how many non-discarded units sit
// there. Locations with no stock are omitted.
type LocationUsage struct {
	LocationID string   `json:"location_id"`
	Path       []string `json:"path"`
	Units      int      `json:"units"`
}

// LocationUsageReport lists occupied locations in hierarchy order with their
// human-readable paths.
func (s *Service) LocationUsageReport(ctx context.Context) ([]LocationUsage, error) {
	var report []LocationUsage
	err := s.view(ctx, "location_usage", func(v TransactionView) error {
		occupancy := map[string]int{}
		for _, unit := range v.ListStockUnits() {
			if unit.Discarded {
				continue
			}
			occupancy[unit.LocationID]++
		}
		paths := domain.LocationPaths(v.LocationTree())
		for _, id := range domain.FlattenLocationIDs(v.LocationTree()) {
			if n := occupancy[id]; n > 0 {
				report = append(report, LocationUsage{LocationID: id, Path: paths[id], Units: n})
			}
		}
		return nil
	})
	return report, err
}
