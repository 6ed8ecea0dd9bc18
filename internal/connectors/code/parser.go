// Package code is the directory source for source code. Files are parsed
// into structural elements, one chunk per declaration.
package code

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Element is one declaration found in a file.
type Element struct {
	Kind          domain.CodeElementKind
	Name          string
	ParentName    string
	Namespace     string
	Parameters    string
	Returns       string
	Attributes    string
	Documentation string
	StartLine     int
	EndLine       int
	Content       string
}

// Parser extracts declarations from one language.
type Parser interface {
	// Extensions lists the file extensions the parser handles.
	Extensions() []string

	// Parse returns the declarations of src in source order.
	Parse(path string, src []byte) ([]Element, error)
}

// GoParser parses Go source with go/parser.
type GoParser struct{}

// NewGoParser creates a Go parser.
func NewGoParser() *GoParser {
	return &GoParser{}
}

// Extensions returns the Go file extension.
func (p *GoParser) Extensions() []string {
	return []string{".go"}
}

// Parse extracts types, functions, methods, struct fields, interface
// methods and enums. A const block whose first spec has a declared named
// type is treated as an enum of that type.
func (p *GoParser) Parse(path string, src []byte) ([]Element, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	w := &goWalker{fset: fset, src: src, pkg: file.Name.Name}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			switch d.Tok {
			case token.TYPE:
				w.typeDecl(d)
			case token.CONST:
				w.constDecl(d)
			}
		case *ast.FuncDecl:
			w.funcDecl(d)
		}
	}
	return w.out, nil
}

type goWalker struct {
	fset *token.FileSet
	src  []byte
	pkg  string
	out  []Element
}

func (w *goWalker) element(kind domain.CodeElementKind, name, parent string, node ast.Node, doc *ast.CommentGroup) Element {
	start := w.fset.PositionFor(node.Pos(), false)
	end := w.fset.PositionFor(node.End(), false)
	return Element{
		Kind:          kind,
		Name:          name,
		ParentName:    parent,
		Namespace:     w.pkg,
		Documentation: docText(doc),
		StartLine:     start.Line,
		EndLine:       end.Line,
		Content:       string(bytes.TrimSpace(w.src[start.Offset:end.Offset])),
	}
}

func (w *goWalker) typeDecl(d *ast.GenDecl) {
	for _, spec := range d.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}

		// An ungrouped declaration spans the "type" keyword too
		var node ast.Node = ts
		doc := ts.Doc
		if !d.Lparen.IsValid() {
			node = d
			doc = d.Doc
		}

		el := w.element(domain.CodeElementType, ts.Name.Name, "", node, doc)
		el.Attributes = typeAttributes(ts)
		if ts.TypeParams != nil {
			el.Parameters = fieldList(ts.TypeParams)
		}
		w.out = append(w.out, el)

		switch t := ts.Type.(type) {
		case *ast.StructType:
			w.structFields(ts.Name.Name, t)
		case *ast.InterfaceType:
			w.interfaceMethods(ts.Name.Name, t)
		}
	}
}

func (w *goWalker) structFields(parent string, st *ast.StructType) {
	for _, f := range st.Fields.List {
		typ := types.ExprString(f.Type)
		tag := ""
		if f.Tag != nil {
			if unquoted, err := strconv.Unquote(f.Tag.Value); err == nil {
				tag = unquoted
			}
		}

		doc := f.Doc
		if doc == nil {
			doc = f.Comment
		}

		names := fieldNames(f)
		for _, name := range names {
			el := w.element(domain.CodeElementField, name, parent, f, doc)
			el.Returns = typ
			el.Attributes = tag
			w.out = append(w.out, el)
		}
	}
}

func (w *goWalker) interfaceMethods(parent string, it *ast.InterfaceType) {
	for _, f := range it.Methods.List {
		ft, ok := f.Type.(*ast.FuncType)
		if !ok || len(f.Names) == 0 {
			// Embedded interface or type constraint
			continue
		}
		for _, name := range f.Names {
			el := w.element(domain.CodeElementProperty, name.Name, parent, f, f.Doc)
			el.Parameters = fieldList(ft.Params)
			el.Returns = results(ft.Results)
			w.out = append(w.out, el)
		}
	}
}

func (w *goWalker) funcDecl(d *ast.FuncDecl) {
	parent := ""
	attrs := ""
	if d.Recv != nil && len(d.Recv.List) > 0 {
		recv := d.Recv.List[0].Type
		attrs = types.ExprString(recv)
		parent = receiverName(recv)
	}

	el := w.element(domain.CodeElementMethod, d.Name.Name, parent, d, d.Doc)
	el.Parameters = fieldList(d.Type.Params)
	el.Returns = results(d.Type.Results)
	el.Attributes = attrs
	w.out = append(w.out, el)
}

func (w *goWalker) constDecl(d *ast.GenDecl) {
	if !d.Lparen.IsValid() || len(d.Specs) == 0 {
		return
	}
	first, ok := d.Specs[0].(*ast.ValueSpec)
	if !ok {
		return
	}
	ident, ok := first.Type.(*ast.Ident)
	if !ok || types.Universe.Lookup(ident.Name) != nil {
		return
	}

	enum := w.element(domain.CodeElementEnum, ident.Name, "", d, d.Doc)
	w.out = append(w.out, enum)

	for _, spec := range d.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		doc := vs.Doc
		if doc == nil {
			doc = vs.Comment
		}
		for i, name := range vs.Names {
			if name.Name == "_" {
				continue
			}
			el := w.element(domain.CodeElementEnumMember, name.Name, ident.Name, vs, doc)
			if i < len(vs.Values) {
				el.Attributes = types.ExprString(vs.Values[i])
			}
			w.out = append(w.out, el)
		}
	}
}

func typeAttributes(ts *ast.TypeSpec) string {
	if ts.Assign.IsValid() {
		return "alias"
	}
	switch ts.Type.(type) {
	case *ast.StructType:
		return "struct"
	case *ast.InterfaceType:
		return "interface"
	default:
		return types.ExprString(ts.Type)
	}
}

func fieldNames(f *ast.Field) []string {
	if len(f.Names) == 0 {
		// Embedded field is named after its type
		return []string{receiverName(f.Type)}
	}
	names := make([]string, 0, len(f.Names))
	for _, n := range f.Names {
		names = append(names, n.Name)
	}
	return names
}

// fieldList renders a parameter list as "a, b int, c string".
func fieldList(fl *ast.FieldList) string {
	if fl == nil {
		return ""
	}
	parts := make([]string, 0, len(fl.List))
	for _, f := range fl.List {
		typ := types.ExprString(f.Type)
		if len(f.Names) == 0 {
			parts = append(parts, typ)
			continue
		}
		names := make([]string, 0, len(f.Names))
		for _, n := range f.Names {
			names = append(names, n.Name)
		}
		parts = append(parts, strings.Join(names, ", ")+" "+typ)
	}
	return strings.Join(parts, ", ")
}

func results(fl *ast.FieldList) string {
	if fl == nil || len(fl.List) == 0 {
		return ""
	}
	if len(fl.List) == 1 && len(fl.List[0].Names) == 0 {
		return types.ExprString(fl.List[0].Type)
	}
	return "(" + fieldList(fl) + ")"
}

// receiverName strips pointers, packages and type arguments from a type.
func receiverName(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.SelectorExpr:
			return e.Sel.Name
		case *ast.Ident:
			return e.Name
		default:
			return types.ExprString(expr)
		}
	}
}

func docText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}
