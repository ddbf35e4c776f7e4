package sandbox

import (
	"context"
	"fmt"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Check parses code and returns an *ImportViolation for the first import
// of a banned module, in source order. Imports inside comments or string
// literals are not imports and are ignored.
func Check(ctx context.Context, code string) error {
	modules, err := Imports(ctx, code)
	if err != nil {
		return err
	}
	for _, m := range modules {
		top, _, _ := strings.Cut(m, ".")
		if slices.Contains(BannedImports, top) {
			return &ImportViolation{Module: top}
		}
	}
	return nil
}

// Imports lists the absolute module names imported by code.
func Imports(ctx context.Context, code string) ([]string, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	src := []byte(code)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}
	defer tree.Close()

	var modules []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				c := n.NamedChild(i)
				switch c.Type() {
				case "dotted_name":
					modules = append(modules, c.Content(src))
				case "aliased_import":
					if name := c.ChildByFieldName("name"); name != nil {
						modules = append(modules, name.Content(src))
					}
				}
			}
			return
		case "import_from_statement":
			if mod := n.ChildByFieldName("module_name"); mod != nil && mod.Type() == "dotted_name" {
				modules = append(modules, mod.Content(src))
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return modules, nil
}
