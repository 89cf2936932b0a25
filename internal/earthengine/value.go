// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package earthengine

import "sort"

type valueKind int

const (
	kindConstant valueKind = iota
	kindArray
	kindDictionary
	kindInvocation
	kindDefinition
	kindArgumentRef
)

// Value is one node of an Earth Engine expression graph. Values are
// immutable once built and may be shared between graphs.
type Value struct {
	kind     valueKind
	constant interface{}
	items    []*Value
	entries  map[string]*Value
	function string
	argNames []string
	body     *Value
	ref      string
}

// Constant wraps a JSON-encodable literal. nil encodes as JSON null.
func Constant(v interface{}) *Value {
	return &Value{kind: kindConstant, constant: v}
}

// Array builds an array value.
func Array(items ...*Value) *Value {
	return &Value{kind: kindArray, items: items}
}

// Strings builds an array of string constants.
func Strings(ss ...string) *Value {
	items := make([]*Value, len(ss))
	for i, s := range ss {
		items[i] = Constant(s)
	}
	return Array(items...)
}

// Dictionary builds a dictionary value.
func Dictionary(entries map[string]*Value) *Value {
	return &Value{kind: kindDictionary, entries: entries}
}

// Invoke calls a server-side algorithm with named arguments. Nil arguments
// are omitted, matching how optional parameters are left unset.
func Invoke(function string, args map[string]*Value) *Value {
	clean := make(map[string]*Value, len(args))
	for k, v := range args {
		if v != nil {
			clean[k] = v
		}
	}
	return &Value{kind: kindInvocation, function: function, entries: clean}
}

// Function defines a server-side lambda whose body may reference its
// arguments through ArgumentRef.
func Function(argNames []string, body *Value) *Value {
	return &Value{kind: kindDefinition, argNames: argNames, body: body}
}

// ArgumentRef refers to an argument of the enclosing Function.
func ArgumentRef(name string) *Value {
	return &Value{kind: kindArgumentRef, ref: name}
}

// FunctionName returns the algorithm name of an invocation, or "".
func (v *Value) FunctionName() string {
	if v == nil || v.kind != kindInvocation {
		return ""
	}
	return v.function
}

// Arg returns a named argument of an invocation.
func (v *Value) Arg(name string) *Value {
	if v == nil || v.kind != kindInvocation {
		return nil
	}
	return v.entries[name]
}

func sortedKeys(m map[string]*Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
