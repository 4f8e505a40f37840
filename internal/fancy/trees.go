package fancy

import (
	"github.com/charmbracelet/lipgloss/tree"
)

// ComponentTree creates a component-specific styled tree
type ComponentTree struct {
	tree *tree.Tree
}

// NewComponentTree creates a new component tree with appropriate styling
func NewComponentTree(title string) *ComponentTree {
	t := Tree()
	t.Root(title)
	return &ComponentTree{tree: t}
}

// Tree returns the underlying tree
func (c *ComponentTree) Tree() *tree.Tree {
	return c.tree
}

// AddChild adds a child node to the root branch
func (c *ComponentTree) AddChild(child any) *tree.Tree {
	return c.tree.Child(child)
}

// String renders the tree
func (c *ComponentTree) String() string {
	return c.tree.String()
}

// ScheduleTree creates a tree for a scheduled job
func ScheduleTree(name string) *ComponentTree {
	return NewComponentTree(ScheduleText(name))
}

// FunctionTree creates a tree for a script-backed capability
func FunctionTree(name string) *ComponentTree {
	return NewComponentTree(FunctionText(name))
}
