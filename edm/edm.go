// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package edm is a minimal entity data model: the structured types,
// navigation sources, and operations that OData JSON readers consult while
// interpreting a payload.
//
// A Model is either a user model, built by NewModel or LoadYAML, or the core
// model returned by CoreModel, which declares nothing beyond the primitive
// types. Readers treat a nil model and the core model alike: neither is a
// user model.
package edm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicate is reported when a name is declared twice in a model.
var ErrDuplicate = errors.New("duplicate declaration")

// A Model is a collection of named schema elements.
type Model struct {
	user       bool
	types      map[string]*StructuredType
	sources    map[string]*NavigationSource
	operations map[string][]*Operation
}

// NewModel returns an empty user model.
func NewModel() *Model {
	return &Model{
		user:       true,
		types:      make(map[string]*StructuredType),
		sources:    make(map[string]*NavigationSource),
		operations: make(map[string][]*Operation),
	}
}

// CoreModel returns a model that declares only the primitive types.
func CoreModel() *Model {
	m := NewModel()
	m.user = false
	return m
}

// IsUserModel reports whether m is non-nil and not the core model.
func (m *Model) IsUserModel() bool { return m != nil && m.user }

// AddType adds t to the model. It reports an error wrapping ErrDuplicate if
// a type with the same full name already exists.
func (m *Model) AddType(t *StructuredType) error {
	name := t.FullName()
	if _, ok := m.types[name]; ok {
		return fmt.Errorf("type %q: %w", name, ErrDuplicate)
	}
	m.types[name] = t
	return nil
}

// AddNavigationSource adds ns to the model. It reports an error wrapping
// ErrDuplicate if a source with the same name already exists.
func (m *Model) AddNavigationSource(ns *NavigationSource) error {
	if _, ok := m.sources[ns.Name]; ok {
		return fmt.Errorf("navigation source %q: %w", ns.Name, ErrDuplicate)
	}
	m.sources[ns.Name] = ns
	return nil
}

// AddOperation adds op to the model. Operations may share a name; lookups by
// name resolve to the first one added.
func (m *Model) AddOperation(op *Operation) {
	name := op.FullName()
	m.operations[name] = append(m.operations[name], op)
}

// FindType returns the structured type with the given qualified name, or nil.
// A leading "#", as used in type annotations, is ignored.
func (m *Model) FindType(name string) *StructuredType {
	if m == nil {
		return nil
	}
	return m.types[strings.TrimPrefix(name, "#")]
}

// FindNavigationSource returns the entity set or singleton with the given
// name, or nil.
func (m *Model) FindNavigationSource(name string) *NavigationSource {
	if m == nil {
		return nil
	}
	return m.sources[name]
}

// FindOperation returns the first operation with the given qualified name,
// or nil.
func (m *Model) FindOperation(name string) *Operation {
	if ops := m.Operations(name); len(ops) != 0 {
		return ops[0]
	}
	return nil
}

// Operations returns all the operations with the given qualified name, in the
// order they were added.
func (m *Model) Operations(name string) []*Operation {
	if m == nil {
		return nil
	}
	return m.operations[strings.TrimPrefix(name, "#")]
}

// TypeKind distinguishes entity types from complex types.
type TypeKind byte

// Constants defining the valid TypeKind values.
const (
	EntityType  TypeKind = iota + 1 // has a key, addressable
	ComplexType                     // no key, contained
)

func (k TypeKind) String() string {
	switch k {
	case EntityType:
		return "entity"
	case ComplexType:
		return "complex"
	}
	return "invalid"
}

// A StructuredType is an entity or complex type.
type StructuredType struct {
	Namespace  string
	Name       string
	Kind       TypeKind
	Base       *StructuredType // or nil
	Abstract   bool
	Open       bool     // permits undeclared dynamic properties
	Key        []string // entity types only
	Properties []Property
}

// FullName returns the namespace-qualified name of t.
func (t *StructuredType) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

func (t *StructuredType) String() string { return t.FullName() }

// IsEntity reports whether t is an entity type.
func (t *StructuredType) IsEntity() bool { return t != nil && t.Kind == EntityType }

// IsOrInheritsFrom reports whether t is base or derives from it, directly or
// indirectly. It reports false if either is nil.
func (t *StructuredType) IsOrInheritsFrom(base *StructuredType) bool {
	if base == nil {
		return false
	}
	for cur := t; cur != nil; cur = cur.Base {
		if cur == base || cur.FullName() == base.FullName() {
			return true
		}
	}
	return false
}

// FindProperty returns the declared property of t or its base types with the
// given name, or nil.
func (t *StructuredType) FindProperty(name string) *Property {
	for cur := t; cur != nil; cur = cur.Base {
		for i, p := range cur.Properties {
			if p.Name == name {
				return &cur.Properties[i]
			}
		}
	}
	return nil
}

// A Property is a declared member of a structured type.
type Property struct {
	Name       string
	Type       TypeRef
	Navigation bool // a navigation property rather than a structural one
}

// SourceKind distinguishes entity sets from singletons.
type SourceKind byte

// Constants defining the valid SourceKind values.
const (
	EntitySet SourceKind = iota + 1
	Singleton
)

func (k SourceKind) String() string {
	switch k {
	case EntitySet:
		return "entity set"
	case Singleton:
		return "singleton"
	}
	return "invalid"
}

// A NavigationSource is an entity set or singleton.
type NavigationSource struct {
	Name        string
	Kind        SourceKind
	ElementType *StructuredType
}

func (ns *NavigationSource) String() string { return ns.Name }

// OperationKind distinguishes actions from functions.
type OperationKind byte

// Constants defining the valid OperationKind values.
const (
	Action OperationKind = iota + 1
	Function
)

func (k OperationKind) String() string {
	switch k {
	case Action:
		return "action"
	case Function:
		return "function"
	}
	return "invalid"
}

// An Operation is an action or function.
type Operation struct {
	Namespace  string
	Name       string
	Kind       OperationKind
	Bound      bool // the first parameter is the binding parameter
	Parameters []Parameter
	ReturnType *TypeRef // nil if the operation returns nothing
}

// A Parameter is a declared operation parameter.
type Parameter struct {
	Name string
	Type TypeRef
}

// FullName returns the namespace-qualified name of op.
func (op *Operation) FullName() string {
	if op.Namespace == "" {
		return op.Name
	}
	return op.Namespace + "." + op.Name
}

// PayloadParameters returns the parameters of op that may appear in a
// parameter payload. The binding parameter of a bound operation is excluded.
func (op *Operation) PayloadParameters() []Parameter {
	if op.Bound && len(op.Parameters) != 0 {
		return op.Parameters[1:]
	}
	return op.Parameters
}

// FindParameter returns the payload parameter of op with the given name, or
// nil.
func (op *Operation) FindParameter(name string) *Parameter {
	ps := op.PayloadParameters()
	for i, p := range ps {
		if p.Name == name {
			return &ps[i]
		}
	}
	return nil
}
