package langregistry

import (
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/sibyllinesoft/valknut/internal/entity"
)

func newPythonAdapter() (Adapter, error) {
	query := `
        (function_definition name: (identifier) @function.name) @function
        (class_definition name: (identifier) @class.name) @class
        (decorated_definition definition: (function_definition name: (identifier) @function.name)) @function
        (assignment left: (identifier) @variable.name) @variable
    `
	kinds := map[string]entity.Kind{"function": entity.KindFunction, "class": entity.KindClass, "variable": entity.KindVariable}
	return newTSAdapter("python", tree_sitter_python.Language(), query, kinds)
}

func newJavaScriptAdapter() (Adapter, error) {
	query := `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (variable_declarator
            name: (identifier) @function.name
            value: [(arrow_function) (function_expression) (generator_function)]) @function
        (variable_declarator
            name: (identifier) @variable.name
            value: (_) @variable.value) @variable
        (method_definition name: (property_identifier) @method.name) @method
        (class_declaration name: (identifier) @class.name) @class
    `
	kinds := map[string]entity.Kind{
		"function": entity.KindFunction, "method": entity.KindMethod,
		"class": entity.KindClass, "variable": entity.KindVariable,
	}
	return newTSAdapter("javascript", tree_sitter_javascript.Language(), query, kinds)
}

func newTypeScriptAdapter() (Adapter, error) {
	query := `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (method_definition name: (property_identifier) @method.name) @method
        (function_expression name: (identifier) @function.name) @function
        (class_declaration name: (type_identifier) @class.name) @class
        (interface_declaration name: (type_identifier) @interface.name) @interface
        (enum_declaration name: (identifier) @enum.name) @enum
    `
	kinds := map[string]entity.Kind{
		"function": entity.KindFunction, "method": entity.KindMethod,
		"class": entity.KindClass, "interface": entity.KindInterface, "enum": entity.KindEnum,
	}
	return newTSAdapter("typescript", tree_sitter_typescript.LanguageTypescript(), query, kinds)
}

func newGoAdapter() (Adapter, error) {
	query := `
        (function_declaration name: (identifier) @function.name) @function
        (method_declaration name: (field_identifier) @method.name) @method
        (type_declaration (type_spec name: (type_identifier) @struct.name type: (struct_type))) @struct
        (type_declaration (type_spec name: (type_identifier) @interface.name type: (interface_type))) @interface
        (const_spec name: (identifier) @constant.name) @constant
        (var_spec name: (identifier) @variable.name) @variable
    `
	kinds := map[string]entity.Kind{
		"function": entity.KindFunction, "method": entity.KindMethod,
		"struct": entity.KindStruct, "interface": entity.KindInterface,
		"constant": entity.KindConstant, "variable": entity.KindVariable,
	}
	return newTSAdapter("go", tree_sitter_go.Language(), query, kinds)
}

func newRustAdapter() (Adapter, error) {
	query := `
        (function_item name: (identifier) @function.name) @function
        (struct_item name: (type_identifier) @struct.name) @struct
        (enum_item name: (type_identifier) @enum.name) @enum
        (trait_item name: (type_identifier) @interface.name) @interface
        (const_item name: (identifier) @constant.name) @constant
        (static_item name: (identifier) @variable.name) @variable
    `
	kinds := map[string]entity.Kind{
		"function": entity.KindFunction, "struct": entity.KindStruct,
		"enum": entity.KindEnum, "interface": entity.KindInterface,
		"constant": entity.KindConstant, "variable": entity.KindVariable,
	}
	return newTSAdapter("rust", tree_sitter_rust.Language(), query, kinds)
}
