package domain

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Location node ids are a 13-digit millisecond timestamp followed by 13
// lowercase hex characters, matching ids issued by earlier deployments so
// existing trees keep their identifiers across replacements.
var locationIDPattern = regexp.MustCompile(`^\d{13}[0-9a-f]{13}$`)

// ValidLocationID reports whether id matches the canonical node id format.
func ValidLocationID(id string) bool {
	return locationIDPattern.MatchString(id)
}

// NewLocationID mints a fresh node id.
func NewLocationID(now time.Time) string {
	buf := make([]byte, 7)
	if _, err := rand.Read(buf); err != nil {
		// math-free fallback keeps the format; nanoseconds give the entropy
		copy(buf, fmt.Sprintf("%07d", now.Nanosecond()%10000000))
	}
	suffix := hex.EncodeToString(buf)[:13]
	return fmt.Sprintf("%013d%s", now.UnixMilli(), suffix)
}

// FlattenLocationIDs returns every node id in the forest in depth-first
// pre-order. The walk is an explicit stack so arbitrarily deep trees cannot
// exhaust goroutine stack.
func FlattenLocationIDs(tree []LocationNode) []string {
	ids := make([]string, 0, len(tree))
	stack := make([]*LocationNode, 0, len(tree))
	for i := len(tree) - 1; i >= 0; i-- {
		stack = append(stack, &tree[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ids = append(ids, node.ID)
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, &node.Children[i])
		}
	}
	return ids
}

// LocationChildCounts maps every node id to its number of direct children.
// A node with count zero is a leaf and may hold stock.
func LocationChildCounts(tree []LocationNode) map[string]int {
	counts := make(map[string]int)
	stack := make([]*LocationNode, 0, len(tree))
	for i := len(tree) - 1; i >= 0; i-- {
		stack = append(stack, &tree[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		counts[node.ID] = len(node.Children)
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, &node.Children[i])
		}
	}
	return counts
}

// LocationPaths maps every node id to its label path from the root,
// e.g. ["Lab 330", "Optical Table", "Drawer 2"].
func LocationPaths(tree []LocationNode) map[string][]string {
	paths := make(map[string][]string)
	type frame struct {
		node *LocationNode
		path []string
	}
	stack := make([]frame, 0, len(tree))
	for i := len(tree) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: &tree[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		path := make([]string, 0, len(f.path)+1)
		path = append(path, f.path...)
		path = append(path, f.node.Label)
		paths[f.node.ID] = path
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: &f.node.Children[i], path: path})
		}
	}
	return paths
}

// DuplicateLabels returns the labels appearing on more than one node anywhere
// in the forest, in first-occurrence order.
func DuplicateLabels(tree []LocationNode) []string {
	seen := make(map[string]int)
	var order []string
	stack := make([]*LocationNode, 0, len(tree))
	for i := len(tree) - 1; i >= 0; i-- {
		stack = append(stack, &tree[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[node.Label] == 0 {
			order = append(order, node.Label)
		}
		seen[node.Label]++
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, &node.Children[i])
		}
	}
	var dups []string
	for _, label := range order {
		if seen[label] > 1 {
			dups = append(dups, label)
		}
	}
	return dups
}

// CloneLocationTree deep-copies a forest via JSON round trip, the same way
// transaction snapshots are isolated from committed state.
func CloneLocationTree(tree []LocationNode) []LocationNode {
	if tree == nil {
		return nil
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return nil
	}
	var out []LocationNode
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// NormalizeLocationTree assigns fresh ids to nodes that are new to the tree
// and arrive without a usable id: missing, malformed, colliding with another
// node in the submission, or colliding with nothing but duplicated. Nodes
// whose id already existed in the previous tree are never touched. The
// returned map records every replacement (submitted id → issued id) so
// clients can fix up references; a node submitted without an id, or whose
// submitted id was already replaced earlier in the walk, is keyed by its
// pre-order position instead ("#3"), so every replacement stays addressable.
func NormalizeLocationTree(tree []LocationNode, prevIDs map[string]struct{}, now time.Time) map[string]string {
	replaced := make(map[string]string)
	used := make(map[string]struct{})

	stack := make([]*LocationNode, 0, len(tree))
	for i := len(tree) - 1; i >= 0; i-- {
		stack = append(stack, &tree[i])
	}
	pos := 0
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		_, existed := prevIDs[node.ID]
		_, taken := used[node.ID]
		needsID := node.ID == "" || (!existed && !ValidLocationID(node.ID)) || taken
		if needsID {
			key := node.ID
			if _, dup := replaced[key]; key == "" || dup {
				key = fmt.Sprintf("#%d", pos)
			}
			id := NewLocationID(now)
			for {
				if _, clash := used[id]; !clash {
					break
				}
				id = NewLocationID(now)
			}
			node.ID = id
			replaced[key] = id
		}
		used[node.ID] = struct{}{}
		pos++

		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, &node.Children[i])
		}
	}
	return replaced
}
