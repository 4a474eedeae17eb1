// Package cel compiles CEL predicates used to route skill requests.
package cel

import (
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Vars declares the variables visible to an expression and their types.
type Vars map[string]*cel.Type

// Filter is a compiled CEL expression that matches against attribute maps.
type Filter struct {
	expr    string
	program cel.Program
}

// Compile parses, type-checks and plans a CEL expression. The expression
// must evaluate to a bool.
func Compile(expr string, vars Vars) (*Filter, error) {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)

	opts := make([]cel.EnvOption, 0, len(names))
	for _, k := range names {
		t := vars[k]
		if t == nil {
			t = cel.DynType
		}
		opts = append(opts, cel.Variable(k, t))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("cel compile: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(types.BoolType) && !ast.OutputType().IsExactType(types.DynType) {
		return nil, fmt.Errorf("cel compile: expression %q yields %s, want bool", expr, ast.OutputType())
	}

	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel program: %w", err)
	}

	return &Filter{expr: expr, program: prog}, nil
}

// MustCompile is like Compile but panics on error. Use for built-in routes.
func MustCompile(expr string, vars Vars) *Filter {
	f, err := Compile(expr, vars)
	if err != nil {
		panic(err)
	}
	return f
}

// String returns the source expression.
func (f *Filter) String() string { return f.expr }

// Match evaluates the filter against the given attributes.
// Returns false (not error) on missing keys, type mismatches, or evaluation errors.
func (f *Filter) Match(attrs map[string]any) bool {
	out, _, err := f.program.Eval(attrs)
	if err != nil {
		return false
	}
	if out.Type() != types.BoolType {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
