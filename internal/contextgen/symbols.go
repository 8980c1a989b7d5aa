package contextgen

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/forgewright/planloom/internal/logging"
)

// extractGoSymbols parses a .go file with tree-sitter and returns the names
// of its top-level declarations (functions, methods, types), giving the
// file-group summary prompt a structural signal beyond the raw file path.
// A parse failure is logged and yields no symbols; it never aborts the
// broader file-group scan.
func extractGoSymbols(path string, content []byte) []string {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		logging.For(logging.ComponentContextGen).Warnw("tree-sitter parse failed, skipping symbols", "file", path, "err", err)
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	var symbols []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		decl := root.NamedChild(i)
		switch decl.Type() {
		case "function_declaration":
			if name := decl.ChildByFieldName("name"); name != nil {
				symbols = append(symbols, name.Content(content))
			}
		case "method_declaration":
			name := decl.ChildByFieldName("name")
			receiver := decl.ChildByFieldName("receiver")
			if name != nil && receiver != nil {
				symbols = append(symbols, fmt.Sprintf("(%s) %s", receiver.Content(content), name.Content(content)))
			}
		case "type_declaration":
			for j := 0; j < int(decl.NamedChildCount()); j++ {
				spec := decl.NamedChild(j)
				if spec.Type() != "type_spec" {
					continue
				}
				if name := spec.ChildByFieldName("name"); name != nil {
					symbols = append(symbols, name.Content(content))
				}
			}
		}
	}
	return symbols
}
