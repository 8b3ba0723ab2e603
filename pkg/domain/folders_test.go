package domain

import (
	"strconv"
	"testing"
)

func TestAssignFolderIDsFillsBlanksOnly(t *testing.T) {
	nodes := []FolderNode{
		{ID: "keep", Name: "Root", Children: []FolderNode{{Name: "Child"}}},
		{Name: "Second"},
	}
	AssignFolderIDs(nodes)
	if nodes[0].ID != "keep" {
		t.Fatalf("existing id overwritten")
	}
	if nodes[0].Children[0].ID == "" || nodes[1].ID == "" {
		t.Fatalf("blank ids not assigned: %+v", nodes)
	}
	if nodes[0].Children[0].ID == nodes[1].ID {
		t.Fatalf("assigned ids collide")
	}
}

func TestValidateFolders(t *testing.T) {
	good := []FolderNode{{ID: "a", Name: "Docs", Children: []FolderNode{{ID: "b", Name: "Drafts"}}}}
	if err := ValidateFolders(good); err != nil {
		t.Fatalf("valid tree rejected: %v", err)
	}
	if err := ValidateFolders([]FolderNode{{ID: "a", Name: ""}}); err == nil {
		t.Fatalf("empty name accepted")
	}
	if err := ValidateFolders([]FolderNode{{ID: "a", Name: "X"}, {ID: "a", Name: "Y"}}); err == nil {
		t.Fatalf("duplicate ids accepted")
	}
	dupNested := []FolderNode{{ID: "a", Name: "X", Children: []FolderNode{{ID: "a", Name: "Y"}}}}
	if err := ValidateFolders(dupNested); err == nil {
		t.Fatalf("nested duplicate ids accepted")
	}
}

func TestValidateFoldersDepthBound(t *testing.T) {
	build := func(depth int) []FolderNode {
		var node *FolderNode
		for i := depth; i >= 1; i-- {
			child := node
			n := FolderNode{ID: "n" + strconv.Itoa(i), Name: "L"}
			if child != nil {
				n.Children = []FolderNode{*child}
			}
			node = &n
		}
		return []FolderNode{*node}
	}
	if err := ValidateFolders(build(MaxFolderDepth)); err != nil {
		t.Fatalf("tree at depth bound rejected: %v", err)
	}
	if err := ValidateFolders(build(MaxFolderDepth + 1)); err == nil {
		t.Fatalf("tree beyond depth bound accepted")
	}
}

func TestFindFolderNodeAndIDs(t *testing.T) {
	tree := []FolderNode{{ID: "a", Name: "Root", Children: []FolderNode{{ID: "b", Name: "Leaf"}}}}
	if node, ok := FindFolderNode(tree, "b"); !ok || node.Name != "Leaf" {
		t.Fatalf("nested lookup failed: %+v ok=%v", node, ok)
	}
	if _, ok := FindFolderNode(tree, "ghost"); ok {
		t.Fatalf("missing id found")
	}
	ids := FolderNodeIDs(tree)
	if len(ids) != 2 {
		t.Fatalf("unexpected id set: %v", ids)
	}
}

func TestCloneFoldersIsDeep(t *testing.T) {
	tree := []FolderNode{{ID: "a", Name: "Root", Children: []FolderNode{{ID: "b", Name: "Leaf"}}}}
	cloned := CloneFolders(tree)
	cloned[0].Children[0].Name = "Mutated"
	if tree[0].Children[0].Name != "Leaf" {
		t.Fatalf("clone aliases original")
	}
}
