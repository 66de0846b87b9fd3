// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package edm

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// LoadYAML reads a user model from a YAML document of the form:
//
//	namespace: NS
//	types:
//	  - name: Person
//	    kind: entity
//	    key: [ID]
//	    properties:
//	      - {name: ID, type: Edm.Int32, nullable: false}
//	      - {name: Friends, type: Collection(NS.Person), navigation: true}
//	sources:
//	  - {name: People, kind: entityset, type: NS.Person}
//	operations:
//	  - name: Rate
//	    kind: action
//	    parameters:
//	      - {name: rating, type: Edm.Int32}
//
// Base types may be declared in any order.
func LoadYAML(r io.Reader) (*Model, error) {
	var doc modelYAML
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return doc.build()
}

type modelYAML struct {
	Namespace  string          `yaml:"namespace"`
	Types      []typeYAML      `yaml:"types"`
	Sources    []sourceYAML    `yaml:"sources"`
	Operations []operationYAML `yaml:"operations"`
}

type typeYAML struct {
	Name       string         `yaml:"name"`
	Kind       string         `yaml:"kind"`
	Base       string         `yaml:"base,omitempty"`
	Abstract   bool           `yaml:"abstract,omitempty"`
	Open       bool           `yaml:"open,omitempty"`
	Key        []string       `yaml:"key,omitempty"`
	Properties []propertyYAML `yaml:"properties,omitempty"`
}

type propertyYAML struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Nullable   *bool  `yaml:"nullable,omitempty"`
	Navigation bool   `yaml:"navigation,omitempty"`
}

type sourceYAML struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	Type string `yaml:"type"`
}

type operationYAML struct {
	Name       string         `yaml:"name"`
	Kind       string         `yaml:"kind"`
	Bound      bool           `yaml:"bound,omitempty"`
	Parameters []propertyYAML `yaml:"parameters,omitempty"`
	Returns    string         `yaml:"returns,omitempty"`
}

func (doc *modelYAML) build() (*Model, error) {
	m := NewModel()
	for _, ty := range doc.Types {
		st := &StructuredType{
			Namespace: doc.Namespace,
			Name:      ty.Name,
			Abstract:  ty.Abstract,
			Open:      ty.Open,
			Key:       ty.Key,
		}
		switch ty.Kind {
		case "entity":
			st.Kind = EntityType
		case "complex", "":
			st.Kind = ComplexType
		default:
			return nil, fmt.Errorf("type %q: unknown kind %q", ty.Name, ty.Kind)
		}
		for _, p := range ty.Properties {
			ref, err := p.typeRef()
			if err != nil {
				return nil, fmt.Errorf("type %q: %w", ty.Name, err)
			}
			st.Properties = append(st.Properties, Property{Name: p.Name, Type: ref, Navigation: p.Navigation})
		}
		if err := m.AddType(st); err != nil {
			return nil, err
		}
	}

	// Link base types once all types are declared.
	for _, ty := range doc.Types {
		if ty.Base == "" {
			continue
		}
		st := m.FindType(doc.qualify(ty.Name))
		base := m.FindType(doc.qualify(ty.Base))
		if base == nil {
			return nil, fmt.Errorf("type %q: unknown base type %q", ty.Name, ty.Base)
		} else if base.IsOrInheritsFrom(st) {
			return nil, fmt.Errorf("type %q: inheritance cycle through %q", ty.Name, ty.Base)
		}
		st.Base = base
	}

	for _, src := range doc.Sources {
		et := m.FindType(doc.qualify(src.Type))
		if et == nil {
			return nil, fmt.Errorf("source %q: unknown type %q", src.Name, src.Type)
		}
		ns := &NavigationSource{Name: src.Name, ElementType: et}
		switch src.Kind {
		case "entityset", "":
			ns.Kind = EntitySet
		case "singleton":
			ns.Kind = Singleton
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", src.Name, src.Kind)
		}
		if err := m.AddNavigationSource(ns); err != nil {
			return nil, err
		}
	}

	for _, op := range doc.Operations {
		o := &Operation{Namespace: doc.Namespace, Name: op.Name, Bound: op.Bound}
		switch op.Kind {
		case "action", "":
			o.Kind = Action
		case "function":
			o.Kind = Function
		default:
			return nil, fmt.Errorf("operation %q: unknown kind %q", op.Name, op.Kind)
		}
		for _, p := range op.Parameters {
			ref, err := p.typeRef()
			if err != nil {
				return nil, fmt.Errorf("operation %q: %w", op.Name, err)
			}
			o.Parameters = append(o.Parameters, Parameter{Name: p.Name, Type: ref})
		}
		if op.Returns != "" {
			ref, err := ParseTypeRef(op.Returns)
			if err != nil {
				return nil, fmt.Errorf("operation %q: %w", op.Name, err)
			}
			o.ReturnType = &ref
		}
		m.AddOperation(o)
	}
	return m, nil
}

// qualify adds the document namespace to an unqualified name.
func (doc *modelYAML) qualify(name string) string {
	if doc.Namespace == "" || strings.Contains(name, ".") {
		return name
	}
	return doc.Namespace + "." + name
}

func (p propertyYAML) typeRef() (TypeRef, error) {
	ref, err := ParseTypeRef(p.Type)
	if err != nil {
		return TypeRef{}, fmt.Errorf("property %q: %w", p.Name, err)
	}
	if p.Nullable != nil {
		ref.Nullable = *p.Nullable
	}
	return ref, nil
}
