package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"devchat/internal/graph"
)

// extractGo walks a parsed Go file. Type declarations become class nodes,
// function declarations function nodes, and method declarations method
// nodes keyed by their receiver's type name. Go has no inheritance facts.
func extractGo(fx *FileExtraction, root *sitter.Node, content []byte) {
	for _, spec := range findAll(root, "import_spec") {
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		fact := ImportFact{
			Module: strings.Trim(nodeText(pathNode, content), "`\""),
			Line:   line(spec),
		}
		if name := spec.ChildByFieldName("name"); name != nil {
			fact.Alias = nodeText(name, content)
		}
		if fact.Module != "" {
			fx.Imports = append(fx.Imports, fact)
		}
	}

	for _, spec := range findAll(root, "type_spec") {
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, content)
		node := newSymbolNode(graph.KindClass, fx.Path, "", name, fx.Language, spec, content)
		if doc := precedingComment(spec, content); doc != "" {
			node.Doc = doc
		} else if p := spec.Parent(); p != nil && p.Type() == "type_declaration" {
			node.Doc = precedingComment(p, content)
		}
		fx.Classes = append(fx.Classes, node)
	}

	for _, def := range findAll(root, "function_declaration") {
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, content)
		node := newSymbolNode(graph.KindFunction, fx.Path, "", name, fx.Language, def, content)
		node.Doc = precedingComment(def, content)
		fx.Funcs = append(fx.Funcs, node)
	}

	for _, def := range findAll(root, "method_declaration") {
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, content)
		container := goReceiverType(def.ChildByFieldName("receiver"), content)
		var node *graph.Node
		if container == "" {
			node = newSymbolNode(graph.KindFunction, fx.Path, "", name, fx.Language, def, content)
			fx.Funcs = append(fx.Funcs, node)
		} else {
			node = newSymbolNode(graph.KindMethod, fx.Path, container, name, fx.Language, def, content)
			fx.Methods = append(fx.Methods, node)
		}
		node.Doc = precedingComment(def, content)
	}

	for _, call := range findAll(root, "call_expression") {
		fn := call.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		var callee string
		switch fn.Type() {
		case "identifier":
			callee = nodeText(fn, content)
		case "selector_expression":
			callee = goSelectorName(fn, content)
		}
		if callee != "" {
			fx.Calls = append(fx.Calls, CallFact{Callee: callee, Line: line(call)})
		}
	}
	fx.Calls = dedupeCalls(fx.Calls)
}

// goReceiverType digs the receiver's type name out of its parameter list,
// seeing through pointers and type parameters.
func goReceiverType(recv *sitter.Node, content []byte) string {
	if recv == nil {
		return ""
	}
	ids := findAll(recv, "type_identifier")
	if len(ids) == 0 {
		return ""
	}
	return nodeText(ids[0], content)
}

// goSelectorName renders a selector chain as a dotted path. Chains rooted
// in anything but a plain identifier keep only the field segments, so
// "c.client().Do" collapses to "Do".
func goSelectorName(sel *sitter.Node, content []byte) string {
	var parts []string
	n := sel
	for n != nil && n.Type() == "selector_expression" {
		if f := n.ChildByFieldName("field"); f != nil {
			parts = append(parts, nodeText(f, content))
		}
		n = n.ChildByFieldName("operand")
	}
	if n != nil && n.Type() == "identifier" {
		parts = append(parts, nodeText(n, content))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// precedingComment joins the run of comment nodes directly before a
// declaration, with comment markers stripped.
func precedingComment(n *sitter.Node, content []byte) string {
	var lines []string
	for p := n.PrevNamedSibling(); p != nil && p.Type() == "comment"; p = p.PrevNamedSibling() {
		text := nodeText(p, content)
		text = strings.TrimPrefix(text, "//")
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
		lines = append(lines, strings.TrimSpace(text))
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
