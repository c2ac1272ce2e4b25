// Package golang extracts functions, methods and struct models from Go
// sources using the tree-sitter Go grammar.
package golang

import (
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/doITmagic/repo-similarity/internal/analyzers/tsutil"
	"github.com/doITmagic/repo-similarity/internal/codetypes"
	"github.com/doITmagic/repo-similarity/internal/config"
)

// Extractor implements codetypes.UnitExtractor for Go
type Extractor struct {
	language     *tree_sitter.Language
	modelBases   []string
	relationKeys []string
}

// NewExtractor creates a Go extractor. Structs embedding one of
// cfg.ModelBases are data models; fields whose struct tag mentions one of
// cfg.RelationshipTypes keep the tag as their parameters text.
func NewExtractor(cfg config.LanguageModelConfig) *Extractor {
	return &Extractor{
		language:     tree_sitter.NewLanguage(tree_sitter_go.Language()),
		modelBases:   cfg.ModelBases,
		relationKeys: cfg.RelationshipTypes,
	}
}

// Language returns "go"
func (e *Extractor) Language() string { return "go" }

// Extensions returns the handled file extensions
func (e *Extractor) Extensions() []string { return []string{".go"} }

// ExtractFile parses one Go file
func (e *Extractor) ExtractFile(path string, content []byte) (codetypes.Units, error) {
	tree, err := tsutil.Parse(e.language, content)
	if err != nil {
		return codetypes.Units{}, err
	}
	defer tree.Close()

	root := tree.RootNode()
	var units codetypes.Units

	for _, decl := range tsutil.NamedChildren(root) {
		switch decl.Kind() {
		case "function_declaration", "method_declaration":
			units.Functions = append(units.Functions, codetypes.FunctionUnit{
				Name:      tsutil.FieldText(decl, "name", content),
				Params:    parameters(decl.ChildByFieldName("parameters"), content),
				BodyText:  tsutil.Text(decl, content),
				Language:  "go",
				FilePath:  path,
				StartLine: tsutil.Line(decl),
			})
		case "type_declaration":
			for _, spec := range tsutil.NamedChildren(decl) {
				if spec.Kind() != "type_spec" {
					continue
				}
				if model, ok := e.model(spec, path, content); ok {
					units.Models = append(units.Models, model)
				}
			}
		}
	}

	return units, nil
}

// parameters flattens `a, b int, opts ...Option` into [a b opts]. Unnamed
// parameters are recorded as "_" so arity is preserved.
func parameters(list *tree_sitter.Node, src []byte) []codetypes.Parameter {
	var params []codetypes.Parameter
	for _, decl := range tsutil.NamedChildren(list) {
		switch decl.Kind() {
		case "parameter_declaration", "variadic_parameter_declaration":
		default:
			continue
		}
		named := false
		for _, child := range tsutil.NamedChildren(decl) {
			if child.Kind() == "identifier" {
				params = append(params, codetypes.Parameter{Name: tsutil.Text(child, src)})
				named = true
			}
		}
		if !named {
			params = append(params, codetypes.Parameter{Name: "_"})
		}
	}
	return params
}

func (e *Extractor) model(spec *tree_sitter.Node, path string, src []byte) (codetypes.ModelUnit, bool) {
	structType := spec.ChildByFieldName("type")
	if structType == nil || structType.Kind() != "struct_type" {
		return codetypes.ModelUnit{}, false
	}

	var body *tree_sitter.Node
	for _, child := range tsutil.NamedChildren(structType) {
		if child.Kind() == "field_declaration_list" {
			body = child
		}
	}

	model := codetypes.ModelUnit{
		Name:      tsutil.FieldText(spec, "name", src),
		Language:  "go",
		FilePath:  path,
		StartLine: tsutil.Line(spec),
	}
	isModel := false

	for _, decl := range tsutil.NamedChildren(body) {
		if decl.Kind() != "field_declaration" {
			continue
		}
		typeText := codetypes.NormalizeText(tsutil.FieldText(decl, "type", src))

		var names []string
		for _, child := range tsutil.NamedChildren(decl) {
			if child.Kind() == "field_identifier" {
				names = append(names, tsutil.Text(child, src))
			}
		}

		if len(names) == 0 {
			// embedded field
			if e.isMarker(typeText) {
				isModel = true
			}
			continue
		}

		tag := tagValue(tsutil.FieldText(decl, "tag", src))
		var params string
		if e.isRelationTag(tag) {
			params = tag
		}
		for _, name := range names {
			model.Fields = append(model.Fields, codetypes.FieldDescriptor{
				Name:           name,
				Type:           typeText,
				ParametersText: params,
			})
		}
	}

	return model, isModel
}

// tagValue decodes a raw or interpreted struct tag literal, keeping the
// literal text when it cannot be decoded
func tagValue(literal string) string {
	if literal == "" {
		return ""
	}
	if v, err := strconv.Unquote(literal); err == nil {
		return v
	}
	return literal
}

func (e *Extractor) isMarker(typeText string) bool {
	for _, marker := range e.modelBases {
		if codetypes.MatchesMarker(typeText, marker) {
			return true
		}
	}
	return false
}

func (e *Extractor) isRelationTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, key := range e.relationKeys {
		if strings.Contains(tag, key) {
			return true
		}
	}
	return false
}

var _ codetypes.UnitExtractor = (*Extractor)(nil)
