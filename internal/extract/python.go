package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"devchat/internal/graph"
)

// extractPython walks a parsed Python module. Classes come from
// class_definition nodes; defs directly inside a class body become methods,
// every other def (top level or nested) a function. Imports, calls and
// inheritance are recorded as raw facts for the resolver.
func extractPython(fx *FileExtraction, root *sitter.Node, content []byte) {
	for _, stmt := range findAll(root, "import_statement") {
		eachChild(stmt, func(child *sitter.Node) {
			switch child.Type() {
			case "dotted_name":
				fx.Imports = append(fx.Imports, ImportFact{
					Module: nodeText(child, content),
					Line:   line(stmt),
				})
			case "aliased_import":
				fact := ImportFact{Line: line(stmt)}
				if name := child.ChildByFieldName("name"); name != nil {
					fact.Module = nodeText(name, content)
				}
				if alias := child.ChildByFieldName("alias"); alias != nil {
					fact.Alias = nodeText(alias, content)
				}
				if fact.Module != "" {
					fx.Imports = append(fx.Imports, fact)
				}
			}
		})
	}

	for _, stmt := range findAll(root, "import_from_statement") {
		moduleNode := stmt.ChildByFieldName("module_name")
		if moduleNode == nil {
			continue
		}
		module := nodeText(moduleNode, content)
		sawAny := false
		eachChild(stmt, func(child *sitter.Node) {
			if child.StartByte() == moduleNode.StartByte() {
				return
			}
			switch child.Type() {
			case "dotted_name", "identifier":
				fx.Imports = append(fx.Imports, ImportFact{
					Module: module,
					Name:   nodeText(child, content),
					Line:   line(stmt),
				})
				sawAny = true
			case "aliased_import":
				fact := ImportFact{Module: module, Line: line(stmt)}
				if name := child.ChildByFieldName("name"); name != nil {
					fact.Name = nodeText(name, content)
				}
				if alias := child.ChildByFieldName("alias"); alias != nil {
					fact.Alias = nodeText(alias, content)
				}
				fx.Imports = append(fx.Imports, fact)
				sawAny = true
			case "wildcard_import":
				fx.Imports = append(fx.Imports, ImportFact{
					Module: module,
					Name:   "*",
					Line:   line(stmt),
				})
				sawAny = true
			}
		})
		if !sawAny {
			fx.Imports = append(fx.Imports, ImportFact{Module: module, Line: line(stmt)})
		}
	}

	for _, def := range findAll(root, "class_definition") {
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, content)
		node := newSymbolNode(graph.KindClass, fx.Path, "", name, fx.Language, def, content)
		if body := def.ChildByFieldName("body"); body != nil {
			node.Doc = pyDocstring(body, content)
		}
		fx.Classes = append(fx.Classes, node)

		if bases := def.ChildByFieldName("superclasses"); bases != nil {
			eachChild(bases, func(arg *sitter.Node) {
				switch arg.Type() {
				case "identifier", "attribute":
					fx.Inherits = append(fx.Inherits, InheritFact{
						Class: name,
						Base:  nodeText(arg, content),
						Line:  line(def),
					})
				}
			})
		}
	}

	for _, def := range findAll(root, "function_definition", "async_function_definition") {
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, content)
		var node *graph.Node
		if class := pyEnclosingClass(def); class != nil {
			className := ""
			if cn := class.ChildByFieldName("name"); cn != nil {
				className = nodeText(cn, content)
			}
			if className == "" {
				continue
			}
			node = newSymbolNode(graph.KindMethod, fx.Path, className, name, fx.Language, def, content)
			fx.Methods = append(fx.Methods, node)
		} else {
			node = newSymbolNode(graph.KindFunction, fx.Path, "", name, fx.Language, def, content)
			fx.Funcs = append(fx.Funcs, node)
		}
		if body := def.ChildByFieldName("body"); body != nil {
			node.Doc = pyDocstring(body, content)
		}
	}

	for _, call := range findAll(root, "call") {
		fn := call.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		var callee string
		switch fn.Type() {
		case "identifier":
			callee = nodeText(fn, content)
		case "attribute":
			callee = pyAttributeName(fn, content)
		}
		if callee != "" {
			fx.Calls = append(fx.Calls, CallFact{Callee: callee, Line: line(call)})
		}
	}
	fx.Calls = dedupeCalls(fx.Calls)
}

// pyEnclosingClass returns the class_definition whose body directly holds
// def, or nil. Decorated and async defs sit one wrapper deeper in the tree.
func pyEnclosingClass(def *sitter.Node) *sitter.Node {
	p := def.Parent()
	for p != nil && (p.Type() == "decorated_definition" || p.Type() == "async_function_definition") {
		p = p.Parent()
	}
	if p == nil || p.Type() != "block" {
		return nil
	}
	if gp := p.Parent(); gp != nil && gp.Type() == "class_definition" {
		return gp
	}
	return nil
}

// pyDocstring returns the docstring when the block's first statement is a
// bare string literal.
func pyDocstring(block *sitter.Node, content []byte) string {
	if block.NamedChildCount() == 0 {
		return ""
	}
	first := block.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Type() != "string" {
		return ""
	}
	return strings.TrimSpace(strings.Trim(nodeText(str, content), `"'`))
}

// pyAttributeName renders an attribute chain as a dotted path. The chain
// base contributes only when it is a plain identifier, so "foo().bar" and
// "x[0].bar" collapse to "bar".
func pyAttributeName(attr *sitter.Node, content []byte) string {
	var parts []string
	n := attr
	for n != nil && n.Type() == "attribute" {
		if a := n.ChildByFieldName("attribute"); a != nil {
			parts = append(parts, nodeText(a, content))
		}
		n = n.ChildByFieldName("object")
	}
	if n != nil && n.Type() == "identifier" {
		parts = append(parts, nodeText(n, content))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}
