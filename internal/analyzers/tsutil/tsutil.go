// Package tsutil holds the tree-sitter plumbing shared by the tree-sitter
// based extractors.
package tsutil

import (
	"errors"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// ErrNoTree is returned when the parser produces no tree at all
var ErrNoTree = errors.New("parser returned no tree")

// SyntaxError reports the first ERROR or MISSING node of a tree
type SyntaxError struct {
	Line   int // 1-based
	Column int // 1-based
	Kind   string
}

func (e *SyntaxError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("syntax error at %d:%d", e.Line, e.Column)
	}
	return fmt.Sprintf("syntax error at %d:%d (missing %s)", e.Line, e.Column, e.Kind)
}

// Parse parses src with language and rejects trees that contain syntax
// errors. The caller must Close the returned tree.
func Parse(language *tree_sitter.Language, src []byte) (*tree_sitter.Tree, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, ErrNoTree
	}

	if root := tree.RootNode(); root.HasError() {
		err := firstError(root)
		tree.Close()
		return nil, err
	}
	return tree, nil
}

func firstError(root *tree_sitter.Node) error {
	var found *SyntaxError
	Walk(root, func(n *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			pos := n.StartPosition()
			found = &SyntaxError{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1}
			if n.IsMissing() {
				found.Kind = n.Kind()
			}
			return false
		}
		return n.HasError()
	})
	if found == nil {
		pos := root.StartPosition()
		return &SyntaxError{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1}
	}
	return found
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the current node.
func Walk(n *tree_sitter.Node, fn func(*tree_sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		Walk(n.Child(i), fn)
	}
}

// NamedChildren returns the named children of n in order
func NamedChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	children := make([]*tree_sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if child := n.NamedChild(i); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// Text returns the source text spanned by n, "" for a nil node
func Text(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(src)
}

// FieldText returns the text of the child stored under field
func FieldText(n *tree_sitter.Node, field string, src []byte) string {
	if n == nil {
		return ""
	}
	return Text(n.ChildByFieldName(field), src)
}

// Line returns the 1-based start line of n
func Line(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}
