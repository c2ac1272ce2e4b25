// Package python extracts functions and data-model classes from Python
// sources using the tree-sitter Python grammar.
package python

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/doITmagic/repo-similarity/internal/analyzers/tsutil"
	"github.com/doITmagic/repo-similarity/internal/codetypes"
	"github.com/doITmagic/repo-similarity/internal/config"
)

// Extractor implements codetypes.UnitExtractor for Python
type Extractor struct {
	language      *tree_sitter.Language
	modelBases    []string
	relationships map[string]struct{}
}

// NewExtractor creates a Python extractor. Classes deriving from one of
// cfg.ModelBases are data models; calls to cfg.RelationshipTypes inside a
// model body are relationship fields.
func NewExtractor(cfg config.LanguageModelConfig) *Extractor {
	rel := make(map[string]struct{}, len(cfg.RelationshipTypes))
	for _, r := range cfg.RelationshipTypes {
		rel[r] = struct{}{}
	}
	return &Extractor{
		language:      tree_sitter.NewLanguage(tree_sitter_python.Language()),
		modelBases:    cfg.ModelBases,
		relationships: rel,
	}
}

// Language returns "python"
func (e *Extractor) Language() string { return "python" }

// Extensions returns the handled file extensions
func (e *Extractor) Extensions() []string { return []string{".py"} }

// ExtractFile parses one Python file. A file with syntax errors yields an
// error and no units.
func (e *Extractor) ExtractFile(path string, content []byte) (codetypes.Units, error) {
	tree, err := tsutil.Parse(e.language, content)
	if err != nil {
		return codetypes.Units{}, err
	}
	defer tree.Close()

	root := tree.RootNode()
	var units codetypes.Units

	tsutil.Walk(root, func(n *tree_sitter.Node) bool {
		if n.Kind() == "function_definition" {
			units.Functions = append(units.Functions, e.function(n, path, content))
		}
		return true
	})

	for _, stmt := range tsutil.NamedChildren(root) {
		class := stmt
		if class.Kind() == "decorated_definition" {
			class = class.ChildByFieldName("definition")
		}
		if class == nil || class.Kind() != "class_definition" {
			continue
		}
		// Each model is finalized as soon as its class node has been read
		if model, ok := e.model(class, path, content); ok {
			units.Models = append(units.Models, model)
		}
	}

	return units, nil
}

func (e *Extractor) function(n *tree_sitter.Node, path string, src []byte) codetypes.FunctionUnit {
	return codetypes.FunctionUnit{
		Name:      tsutil.FieldText(n, "name", src),
		Params:    parameters(n.ChildByFieldName("parameters"), src),
		BodyText:  tsutil.Text(n, src),
		Language:  "python",
		FilePath:  path,
		StartLine: tsutil.Line(n),
	}
}

// parameters collects named parameters in order. *args, **kwargs and the
// bare "*" and "/" separators carry no comparable name and are skipped.
func parameters(list *tree_sitter.Node, src []byte) []codetypes.Parameter {
	var params []codetypes.Parameter
	for _, p := range tsutil.NamedChildren(list) {
		switch p.Kind() {
		case "identifier":
			params = append(params, codetypes.Parameter{Name: tsutil.Text(p, src)})
		case "typed_parameter":
			if first := p.NamedChild(0); first != nil && first.Kind() == "identifier" {
				params = append(params, codetypes.Parameter{Name: tsutil.Text(first, src)})
			}
		case "default_parameter", "typed_default_parameter":
			name := p.ChildByFieldName("name")
			if name == nil || name.Kind() != "identifier" {
				continue
			}
			params = append(params, codetypes.Parameter{
				Name:       tsutil.Text(name, src),
				Default:    codetypes.NormalizeText(tsutil.FieldText(p, "value", src)),
				HasDefault: true,
			})
		}
	}
	return params
}

func (e *Extractor) model(class *tree_sitter.Node, path string, src []byte) (codetypes.ModelUnit, bool) {
	if !e.isModel(class, src) {
		return codetypes.ModelUnit{}, false
	}

	model := codetypes.ModelUnit{
		Name:      tsutil.FieldText(class, "name", src),
		Language:  "python",
		FilePath:  path,
		StartLine: tsutil.Line(class),
	}

	for _, stmt := range tsutil.NamedChildren(class.ChildByFieldName("body")) {
		if stmt.Kind() != "expression_statement" {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign == nil || assign.Kind() != "assignment" {
			continue
		}
		if field, ok := e.field(assign, src); ok {
			model.Fields = append(model.Fields, field)
		}
	}
	return model, true
}

func (e *Extractor) isModel(class *tree_sitter.Node, src []byte) bool {
	for _, base := range tsutil.NamedChildren(class.ChildByFieldName("superclasses")) {
		switch base.Kind() {
		case "identifier", "attribute":
		default:
			continue // metaclass=..., Generic[T]
		}
		text := tsutil.Text(base, src)
		for _, marker := range e.modelBases {
			if codetypes.MatchesMarker(text, marker) {
				return true
			}
		}
	}
	return false
}

// field recognises `name = ns.FieldType(...)` and `name = FieldType(...)`
// where FieldType looks like a field constructor (ends in "Field") or is a
// configured relationship. Managers and other helpers are not fields.
func (e *Extractor) field(assign *tree_sitter.Node, src []byte) (codetypes.FieldDescriptor, bool) {
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Kind() != "identifier" || right.Kind() != "call" {
		return codetypes.FieldDescriptor{}, false
	}

	var fieldType string
	switch fn := right.ChildByFieldName("function"); {
	case fn == nil:
		return codetypes.FieldDescriptor{}, false
	case fn.Kind() == "attribute":
		fieldType = tsutil.FieldText(fn, "attribute", src)
	case fn.Kind() == "identifier":
		fieldType = tsutil.Text(fn, src)
	default:
		return codetypes.FieldDescriptor{}, false
	}
	if _, rel := e.relationships[fieldType]; !rel && !strings.HasSuffix(fieldType, "Field") {
		return codetypes.FieldDescriptor{}, false
	}

	field := codetypes.FieldDescriptor{
		Name: tsutil.Text(left, src),
		Type: fieldType,
	}
	if _, rel := e.relationships[fieldType]; rel {
		args := tsutil.Text(right.ChildByFieldName("arguments"), src)
		args = strings.TrimSuffix(strings.TrimPrefix(args, "("), ")")
		field.ParametersText = codetypes.NormalizeText(args)
	}
	return field, true
}

var _ codetypes.UnitExtractor = (*Extractor)(nil)
