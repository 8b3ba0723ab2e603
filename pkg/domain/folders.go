package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxFolderDepth bounds the nesting of a workspace folder tree.
const MaxFolderDepth = 16

// FolderNode is one named node in a workspace folder tree. Node ids are
// assigned by the store when absent and stay stable across edits.
type FolderNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Children []FolderNode `json:"children,omitempty"`
}

// AssignFolderIDs fills in missing node ids in place.
func AssignFolderIDs(nodes []FolderNode) {
	for i := range nodes {
		if nodes[i].ID == "" {
			nodes[i].ID = uuid.NewString()
		}
		AssignFolderIDs(nodes[i].Children)
	}
}

// ValidateFolders checks a workspace folder tree: every node has a non-empty
// name, ids are unique across the whole tree, and nesting stays within
// MaxFolderDepth.
func ValidateFolders(nodes []FolderNode) error {
	seen := make(map[string]struct{})
	return validateFolderLevel(nodes, 1, seen)
}

func validateFolderLevel(nodes []FolderNode, depth int, seen map[string]struct{}) error {
	if len(nodes) == 0 {
		return nil
	}
	if depth > MaxFolderDepth {
		return fmt.Errorf("folder tree exceeds max depth %d", MaxFolderDepth)
	}
	for _, n := range nodes {
		if strings.TrimSpace(n.Name) == "" {
			return fmt.Errorf("folder node %q has empty name", n.ID)
		}
		if n.ID != "" {
			if _, dup := seen[n.ID]; dup {
				return fmt.Errorf("duplicate folder node id %q", n.ID)
			}
			seen[n.ID] = struct{}{}
		}
		if err := validateFolderLevel(n.Children, depth+1, seen); err != nil {
			return err
		}
	}
	return nil
}

// FindFolderNode locates a node by id anywhere in the tree.
func FindFolderNode(nodes []FolderNode, id string) (FolderNode, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
		if found, ok := FindFolderNode(n.Children, id); ok {
			return found, true
		}
	}
	return FolderNode{}, false
}

// FolderNodeIDs flattens the tree into the set of node ids it contains.
func FolderNodeIDs(nodes []FolderNode) map[string]struct{} {
	ids := make(map[string]struct{})
	collectFolderIDs(nodes, ids)
	return ids
}

func collectFolderIDs(nodes []FolderNode, into map[string]struct{}) {
	for _, n := range nodes {
		into[n.ID] = struct{}{}
		collectFolderIDs(n.Children, into)
	}
}

// CloneFolders deep-copies a folder tree.
func CloneFolders(nodes []FolderNode) []FolderNode {
	if nodes == nil {
		return nil
	}
	out := make([]FolderNode, len(nodes))
	for i, n := range nodes {
		out[i] = FolderNode{ID: n.ID, Name: n.Name, Children: CloneFolders(n.Children)}
	}
	return out
}
