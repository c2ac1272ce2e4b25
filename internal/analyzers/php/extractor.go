// Package php extracts functions, methods and Eloquent-style models from PHP
// sources using the VKCOM php-parser.
package php

import (
	"fmt"
	"strings"

	"github.com/VKCOM/php-parser/pkg/ast"
	"github.com/VKCOM/php-parser/pkg/conf"
	"github.com/VKCOM/php-parser/pkg/errors"
	"github.com/VKCOM/php-parser/pkg/parser"
	"github.com/VKCOM/php-parser/pkg/position"
	"github.com/VKCOM/php-parser/pkg/version"
	"github.com/VKCOM/php-parser/pkg/visitor"
	"github.com/VKCOM/php-parser/pkg/visitor/traverser"

	"github.com/doITmagic/repo-similarity/internal/codetypes"
	"github.com/doITmagic/repo-similarity/internal/config"
)

// attributeType is the field type given to $fillable entries without a cast
const attributeType = "attribute"

// Extractor implements codetypes.UnitExtractor for PHP
type Extractor struct {
	modelBases    []string
	relationships map[string]struct{}
}

// NewExtractor creates a PHP extractor. Classes extending one of
// cfg.ModelBases are models; methods returning $this-><relation>(...) for a
// relation in cfg.RelationshipTypes become relationship fields.
func NewExtractor(cfg config.LanguageModelConfig) *Extractor {
	rel := make(map[string]struct{}, len(cfg.RelationshipTypes))
	for _, r := range cfg.RelationshipTypes {
		rel[r] = struct{}{}
	}
	return &Extractor{modelBases: cfg.ModelBases, relationships: rel}
}

// Language returns "php"
func (e *Extractor) Language() string { return "php" }

// Extensions returns the handled file extensions
func (e *Extractor) Extensions() []string { return []string{".php"} }

// ExtractFile parses one PHP file. Any parser error rejects the whole file.
func (e *Extractor) ExtractFile(path string, content []byte) (codetypes.Units, error) {
	var parserErrors []*errors.Error

	root, err := parser.Parse(content, conf.Config{
		Version: &version.Version{Major: 8, Minor: 0},
		ErrorHandlerFunc: func(perr *errors.Error) {
			parserErrors = append(parserErrors, perr)
		},
	})
	if err != nil {
		return codetypes.Units{}, fmt.Errorf("failed to parse PHP: %w", err)
	}
	if len(parserErrors) > 0 {
		first := parserErrors[0]
		if first.Pos != nil {
			return codetypes.Units{}, fmt.Errorf("syntax error at line %d: %s", first.Pos.StartLine, first.Msg)
		}
		return codetypes.Units{}, fmt.Errorf("syntax error: %s", first.Msg)
	}
	if root == nil {
		return codetypes.Units{}, nil
	}

	c := &unitCollector{extractor: e, filePath: path, content: content}
	traverser.NewTraverser(c).Traverse(root)
	return c.units, nil
}

// unitCollector visits every function, method and class of a file
type unitCollector struct {
	visitor.Null
	extractor *Extractor
	filePath  string
	content   []byte
	units     codetypes.Units
}

func (c *unitCollector) StmtFunction(n *ast.StmtFunction) {
	c.addFunction(n.Name, n.Params, n.Position)
}

func (c *unitCollector) StmtClassMethod(n *ast.StmtClassMethod) {
	c.addFunction(n.Name, n.Params, n.Position)
}

func (c *unitCollector) StmtClass(n *ast.StmtClass) {
	name := identifier(n.Name)
	if name == "" || !c.extractor.isModel(nameString(n.Extends)) {
		return
	}

	model := codetypes.ModelUnit{
		Name:     name,
		Fields:   c.extractor.fields(n, c.content),
		Language: "php",
		FilePath: c.filePath,
	}
	if n.Position != nil {
		model.StartLine = n.Position.StartLine
	}
	c.units.Models = append(c.units.Models, model)
}

func (c *unitCollector) addFunction(nameNode ast.Vertex, params []ast.Vertex, pos *position.Position) {
	name := identifier(nameNode)
	if name == "" {
		return
	}

	fn := codetypes.FunctionUnit{
		Name:     name,
		Language: "php",
		FilePath: c.filePath,
		BodyText: sourceText(c.content, pos),
	}
	if pos != nil {
		fn.StartLine = pos.StartLine
	}

	for _, param := range params {
		p, ok := param.(*ast.Parameter)
		if !ok {
			continue
		}
		out := codetypes.Parameter{Name: variableName(p.Var)}
		if p.DefaultValue != nil {
			out.HasDefault = true
			out.Default = codetypes.NormalizeText(sourceText(c.content, p.DefaultValue.GetPosition()))
		}
		fn.Params = append(fn.Params, out)
	}

	c.units.Functions = append(c.units.Functions, fn)
}

func (e *Extractor) isModel(extends string) bool {
	for _, marker := range e.modelBases {
		if codetypes.MatchesMarker(extends, marker) {
			return true
		}
	}
	return false
}

// fields reads $casts, $fillable and relationship methods in declaration
// order. Fillable attributes that also have a cast are reported once, with
// the cast type.
func (e *Extractor) fields(class *ast.StmtClass, src []byte) []codetypes.FieldDescriptor {
	casted := make(map[string]struct{})
	for _, pair := range propertyArray(class, "casts") {
		casted[pair.key] = struct{}{}
	}

	var fields []codetypes.FieldDescriptor
	for _, stmt := range class.Stmts {
		switch n := stmt.(type) {
		case *ast.StmtPropertyList:
			for _, prop := range n.Props {
				p, ok := prop.(*ast.StmtProperty)
				if !ok || p.Expr == nil {
					continue
				}
				switch variableName(p.Var) {
				case "casts":
					for _, pair := range arrayItems(p.Expr) {
						if pair.key != "" && pair.value != "" {
							fields = append(fields, codetypes.FieldDescriptor{Name: pair.key, Type: pair.value})
						}
					}
				case "fillable":
					for _, pair := range arrayItems(p.Expr) {
						if _, ok := casted[pair.value]; ok || pair.value == "" {
							continue
						}
						fields = append(fields, codetypes.FieldDescriptor{Name: pair.value, Type: attributeType})
					}
				}
			}

		case *ast.StmtClassMethod:
			if field, ok := e.relationField(n, src); ok {
				fields = append(fields, field)
			}
		}
	}
	return fields
}

// relationField matches `return $this->hasMany(Post::class, ...);`
func (e *Extractor) relationField(method *ast.StmtClassMethod, src []byte) (codetypes.FieldDescriptor, bool) {
	list, ok := method.Stmt.(*ast.StmtStmtList)
	if !ok {
		return codetypes.FieldDescriptor{}, false
	}

	for _, stmt := range list.Stmts {
		ret, ok := stmt.(*ast.StmtReturn)
		if !ok {
			continue
		}
		call := rootThisCall(ret.Expr)
		if call == nil {
			continue
		}
		relation := identifier(call.Method)
		if _, ok := e.relationships[relation]; !ok {
			continue
		}
		return codetypes.FieldDescriptor{
			Name:           identifier(method.Name),
			Type:           relation,
			ParametersText: codetypes.NormalizeText(argumentsText(call.Args, src)),
		}, true
	}
	return codetypes.FieldDescriptor{}, false
}

// rootThisCall unwinds chained calls such as
// $this->belongsToMany(Role::class)->withTimestamps() to the call made on $this.
func rootThisCall(expr ast.Vertex) *ast.ExprMethodCall {
	for {
		call, ok := expr.(*ast.ExprMethodCall)
		if !ok {
			return nil
		}
		if variableName(call.Var) == "this" {
			return call
		}
		expr = call.Var
	}
}

type arrayPair struct {
	key   string
	value string
}

func propertyArray(class *ast.StmtClass, name string) []arrayPair {
	for _, stmt := range class.Stmts {
		list, ok := stmt.(*ast.StmtPropertyList)
		if !ok {
			continue
		}
		for _, prop := range list.Props {
			if p, ok := prop.(*ast.StmtProperty); ok && p.Expr != nil && variableName(p.Var) == name {
				return arrayItems(p.Expr)
			}
		}
	}
	return nil
}

func arrayItems(expr ast.Vertex) []arrayPair {
	arr, ok := expr.(*ast.ExprArray)
	if !ok {
		return nil
	}
	pairs := make([]arrayPair, 0, len(arr.Items))
	for _, item := range arr.Items {
		if it, ok := item.(*ast.ExprArrayItem); ok {
			pairs = append(pairs, arrayPair{key: stringValue(it.Key), value: stringValue(it.Val)})
		}
	}
	return pairs
}

func stringValue(expr ast.Vertex) string {
	switch n := expr.(type) {
	case *ast.ScalarString:
		return strings.Trim(string(n.Value), `'"`)
	case *ast.ExprClassConstFetch:
		if identifier(n.Const) == "class" {
			return nameString(n.Class)
		}
	case *ast.Identifier:
		return string(n.Value)
	}
	return ""
}

func identifier(node ast.Vertex) string {
	if ident, ok := node.(*ast.Identifier); ok {
		return string(ident.Value)
	}
	return ""
}

func variableName(node ast.Vertex) string {
	if v, ok := node.(*ast.ExprVariable); ok {
		return strings.TrimPrefix(identifier(v.Name), "$")
	}
	return ""
}

func nameString(node ast.Vertex) string {
	var parts []ast.Vertex
	prefix := ""
	switch n := node.(type) {
	case *ast.Name:
		parts = n.Parts
	case *ast.NameFullyQualified:
		parts = n.Parts
		prefix = `\`
	default:
		return ""
	}
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if p, ok := part.(*ast.NamePart); ok {
			names = append(names, string(p.Value))
		}
	}
	return prefix + strings.Join(names, `\`)
}

func argumentsText(args []ast.Vertex, src []byte) string {
	if len(args) == 0 {
		return ""
	}
	first, last := args[0].GetPosition(), args[len(args)-1].GetPosition()
	if first == nil || last == nil {
		return ""
	}
	return sourceText(src, &position.Position{StartPos: first.StartPos, EndPos: last.EndPos})
}

func sourceText(src []byte, pos *position.Position) string {
	if pos == nil || pos.StartPos < 0 || pos.EndPos > len(src) || pos.StartPos >= pos.EndPos {
		return ""
	}
	return string(src[pos.StartPos:pos.EndPos])
}

var _ codetypes.UnitExtractor = (*Extractor)(nil)
