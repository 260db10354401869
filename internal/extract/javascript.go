package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"devchat/internal/graph"
)

// extractJavaScript walks a parsed JavaScript or TypeScript file. Classes
// come from class declarations, methods from method definitions inside a
// class body, functions from declarations and from arrows or function
// expressions bound by a variable declarator. require() and dynamic
// import() count as imports, not calls.
func extractJavaScript(fx *FileExtraction, root *sitter.Node, content []byte) {
	for _, stmt := range findAll(root, "import_statement", "export_statement") {
		source := stmt.ChildByFieldName("source")
		if source == nil {
			continue
		}
		module := jsStringValue(source, content)
		if module == "" {
			continue
		}
		fx.Imports = append(fx.Imports, ImportFact{Module: module, Line: line(stmt)})
	}

	for _, def := range findAll(root, "class_declaration", "abstract_class_declaration") {
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, content)
		node := newSymbolNode(graph.KindClass, fx.Path, "", name, fx.Language, def, content)
		node.Doc = precedingComment(def, content)
		fx.Classes = append(fx.Classes, node)

		for _, base := range jsClassBases(def, content) {
			fx.Inherits = append(fx.Inherits, InheritFact{
				Class: name,
				Base:  base,
				Line:  line(def),
			})
		}
	}

	for _, def := range findAll(root, "method_definition") {
		className := jsEnclosingClassName(def, content)
		if className == "" {
			continue
		}
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, content)
		node := newSymbolNode(graph.KindMethod, fx.Path, className, name, fx.Language, def, content)
		fx.Methods = append(fx.Methods, node)
	}

	for _, def := range findAll(root, "function_declaration", "generator_function_declaration") {
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, content)
		node := newSymbolNode(graph.KindFunction, fx.Path, "", name, fx.Language, def, content)
		node.Doc = precedingComment(def, content)
		fx.Funcs = append(fx.Funcs, node)
	}

	for _, decl := range findAll(root, "variable_declarator") {
		value := decl.ChildByFieldName("value")
		if value == nil || !jsIsFunctionValue(value.Type()) {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		name := nodeText(nameNode, content)
		node := newSymbolNode(graph.KindFunction, fx.Path, "", name, fx.Language, decl, content)
		if p := decl.Parent(); p != nil {
			node.Doc = precedingComment(p, content)
		}
		fx.Funcs = append(fx.Funcs, node)
	}

	for _, call := range findAll(root, "call_expression") {
		fn := call.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		switch fn.Type() {
		case "identifier":
			callee := nodeText(fn, content)
			if callee == "require" {
				if module := jsFirstStringArg(call, content); module != "" {
					fx.Imports = append(fx.Imports, ImportFact{Module: module, Line: line(call)})
					continue
				}
			}
			fx.Calls = append(fx.Calls, CallFact{Callee: callee, Line: line(call)})
		case "member_expression":
			if callee := jsMemberName(fn, content); callee != "" {
				fx.Calls = append(fx.Calls, CallFact{Callee: callee, Line: line(call)})
			}
		case "import":
			if module := jsFirstStringArg(call, content); module != "" {
				fx.Imports = append(fx.Imports, ImportFact{Module: module, Line: line(call)})
			}
		}
	}
	fx.Calls = dedupeCalls(fx.Calls)
}

// jsIsFunctionValue covers the function-expression node names across the
// javascript and typescript grammars.
func jsIsFunctionValue(nodeType string) bool {
	switch nodeType {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

// jsEnclosingClassName resolves the named class whose body holds a method
// definition. Object-literal methods have no class body parent and are
// skipped.
func jsEnclosingClassName(def *sitter.Node, content []byte) string {
	body := def.Parent()
	if body == nil || body.Type() != "class_body" {
		return ""
	}
	class := body.Parent()
	if class == nil {
		return ""
	}
	switch class.Type() {
	case "class_declaration", "abstract_class_declaration", "class":
		if name := class.ChildByFieldName("name"); name != nil {
			return nodeText(name, content)
		}
	}
	return ""
}

// jsClassBases lists the extends targets of a class. The typescript
// grammar wraps them in an extends_clause; plain javascript puts the
// expression directly under class_heritage. implements clauses are not
// inheritance and are ignored.
func jsClassBases(def *sitter.Node, content []byte) []string {
	var bases []string
	eachChild(def, func(child *sitter.Node) {
		if child.Type() != "class_heritage" {
			return
		}
		sawClause := false
		eachChild(child, func(clause *sitter.Node) {
			if clause.Type() != "extends_clause" {
				return
			}
			sawClause = true
			eachChild(clause, func(t *sitter.Node) {
				if name := jsTypeName(t, content); name != "" {
					bases = append(bases, name)
				}
			})
		})
		if !sawClause {
			eachChild(child, func(expr *sitter.Node) {
				if name := jsTypeName(expr, content); name != "" {
					bases = append(bases, name)
				}
			})
		}
	})
	return bases
}

func jsTypeName(n *sitter.Node, content []byte) string {
	switch n.Type() {
	case "identifier", "type_identifier":
		return nodeText(n, content)
	case "member_expression":
		return jsMemberName(n, content)
	case "generic_type":
		if ids := findAll(n, "type_identifier"); len(ids) > 0 {
			return nodeText(ids[0], content)
		}
	}
	return ""
}

// jsMemberName renders a member chain as a dotted path. Bases other than
// an identifier, this or super keep only the property segments.
func jsMemberName(m *sitter.Node, content []byte) string {
	var parts []string
	n := m
	for n != nil && n.Type() == "member_expression" {
		if p := n.ChildByFieldName("property"); p != nil {
			parts = append(parts, nodeText(p, content))
		}
		n = n.ChildByFieldName("object")
	}
	if n != nil {
		switch n.Type() {
		case "identifier", "this", "super":
			parts = append(parts, nodeText(n, content))
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// jsFirstStringArg returns the unquoted first string argument of a call,
// or "".
func jsFirstStringArg(call *sitter.Node, content []byte) string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg != nil && arg.Type() == "string" {
			return jsStringValue(arg, content)
		}
	}
	return ""
}

func jsStringValue(n *sitter.Node, content []byte) string {
	return strings.Trim(nodeText(n, content), "\"'`")
}
