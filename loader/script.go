package loader

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

// Script evaluates a declaration written as a Go source file in package
// main. Every top-level var or const is a binding:
//
//	package main
//
//	var __META__ = map[string]any{"template": "post.html"}
//	var TITLE = "Hello"
type Script struct{}

func (Script) Parse(path string, src []byte) (map[string]any, error) {
	names, err := topLevelNames(path, src)
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("script stdlib: %w", err)
	}
	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("interpret: %w", err)
	}

	bindings := make(map[string]any, len(names))
	for _, name := range names {
		value, err := i.Eval(name)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", name, err)
		}
		if !value.IsValid() {
			bindings[name] = nil
			continue
		}
		plain, err := plainValue(value.Interface())
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", name, err)
		}
		bindings[name] = plain
	}
	return bindings, nil
}

// plainValue round-trips an interpreter value through YAML so only plain
// strings, numbers, slices and string keyed maps leave the interpreter.
func plainValue(v any) (any, error) {
	payload, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := yaml.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// topLevelNames lists package-level var and const identifiers in declaration
// order.
func topLevelNames(path string, src []byte) ([]string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse go: %w", err)
	}
	if file.Name.Name != "main" {
		return nil, fmt.Errorf("declaration scripts must use package main, found %q", file.Name.Name)
	}
	var names []string
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || (gen.Tok != token.VAR && gen.Tok != token.CONST) {
			continue
		}
		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, ident := range vs.Names {
				if ident.Name == "_" {
					continue
				}
				names = append(names, ident.Name)
			}
		}
	}
	return names, nil
}
