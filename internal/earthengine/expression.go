// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package earthengine

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Expression is the wire form of a value graph: a flat table of nodes
// addressed by ID plus the ID of the result node.
type Expression struct {
	Result string                 `json:"result"`
	Values map[string]interface{} `json:"values"`
}

// Serialize flattens a value graph into an Expression. Invocations and
// function definitions live in the value table and are referenced by ID;
// literals are inlined. Structurally identical subtrees share one entry,
// so the same graph always serializes to the same bytes.
func Serialize(root *Value) (*Expression, error) {
	s := &serializer{
		values: make(map[string]interface{}),
		ids:    make(map[string]string),
		seen:   make(map[*Value]interface{}),
	}
	encoded := s.encode(root)
	result := ""
	if ref, ok := encoded.(valueReference); ok {
		result = ref.ID
	} else {
		result = s.store(encoded)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Expression{Result: result, Values: s.values}, nil
}

type valueReference struct {
	ID string `json:"valueReference"`
}

type serializer struct {
	values map[string]interface{}
	ids    map[string]string // canonical node JSON -> ID
	seen   map[*Value]interface{}
	next   int
	err    error
}

// store adds node to the table, reusing the ID of an identical node.
func (s *serializer) store(node interface{}) string {
	canonical, err := json.Marshal(node)
	if err != nil {
		if s.err == nil {
			s.err = fmt.Errorf("unencodable expression node: %w", err)
		}
		return ""
	}
	if id, ok := s.ids[string(canonical)]; ok {
		return id
	}
	id := strconv.Itoa(s.next)
	s.next++
	s.ids[string(canonical)] = id
	s.values[id] = node
	return id
}

func (s *serializer) encode(v *Value) interface{} {
	if v == nil {
		return map[string]interface{}{"constantValue": nil}
	}
	if enc, ok := s.seen[v]; ok {
		return enc
	}

	var enc interface{}
	switch v.kind {
	case kindConstant:
		enc = map[string]interface{}{"constantValue": v.constant}
	case kindArray:
		items := make([]interface{}, len(v.items))
		for i, item := range v.items {
			items[i] = s.encode(item)
		}
		enc = map[string]interface{}{"arrayValue": map[string]interface{}{"values": items}}
	case kindDictionary:
		entries := make(map[string]interface{}, len(v.entries))
		for _, k := range sortedKeys(v.entries) {
			entries[k] = s.encode(v.entries[k])
		}
		enc = map[string]interface{}{"dictionaryValue": map[string]interface{}{"values": entries}}
	case kindInvocation:
		args := make(map[string]interface{}, len(v.entries))
		for _, k := range sortedKeys(v.entries) {
			args[k] = s.encode(v.entries[k])
		}
		node := map[string]interface{}{
			"functionInvocationValue": map[string]interface{}{
				"functionName": v.function,
				"arguments":    args,
			},
		}
		enc = valueReference{ID: s.store(node)}
	case kindDefinition:
		body := s.encode(v.body)
		bodyID := ""
		if ref, ok := body.(valueReference); ok {
			bodyID = ref.ID
		} else {
			bodyID = s.store(body)
		}
		node := map[string]interface{}{
			"functionDefinitionValue": map[string]interface{}{
				"argumentNames": v.argNames,
				"body":          bodyID,
			},
		}
		enc = valueReference{ID: s.store(node)}
	case kindArgumentRef:
		enc = map[string]interface{}{"argumentReference": v.ref}
	}

	s.seen[v] = enc
	return enc
}
