// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package teleop

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a parameter document is not a mapping.
var ErrNotMapping = errors.New("parameters must be a mapping of name to value")

// DecodeParameters reads a YAML (or JSON) mapping of parameter values.
// Nested mappings flatten into dotted names, so
//
//	axis_linear:
//	  x: 4
//
// yields "axis_linear.x". Each value keeps the kind of its literal:
// 4 is an integer, 4.0 a double, true a boolean.
func DecodeParameters(data []byte) ([]Parameter, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, nil
		}
		return parametersFromNode(doc.Content[0])
	}
	return parametersFromNode(&doc)
}

func parametersFromNode(n *yaml.Node) ([]Parameter, error) {
	if n.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	var out []Parameter
	if err := flatten("", n, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(prefix string, n *yaml.Node, out *[]Parameter) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		name := k.Value
		if prefix != "" {
			name = prefix + "." + name
		}
		if v.Kind == yaml.AliasNode && v.Alias != nil {
			v = v.Alias
		}
		if v.Kind == yaml.MappingNode {
			if err := flatten(name, v, out); err != nil {
				return err
			}
			continue
		}
		val, err := valueFromNode(v)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		*out = append(*out, Parameter{Name: name, Value: val})
	}
	return nil
}

// valueFromNode types a scalar by its resolved YAML tag. Sequences and
// nulls come back as KindNotSet and fail the declared-kind check later.
func valueFromNode(n *yaml.Node) (Value, error) {
	if n.Kind != yaml.ScalarNode {
		return Value{}, nil
	}
	switch n.ShortTag() {
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, err
		}
		return IntegerValue(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return DoubleValue(f), nil
	case "!!str":
		return StringValue(n.Value), nil
	default:
		return Value{}, nil
	}
}

// LoadParamsFile reads a YAML parameter file over Defaults. Files written
// for a ROS parameter server ("<node>: ros__parameters: ...") are accepted
// too. Any rejected entry fails the whole load.
func LoadParamsFile(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to open params file: %w", err)
	}

	updates, err := DecodeParameters(data)
	if err != nil {
		return Params{}, fmt.Errorf("params file %s: %w", path, err)
	}
	const rosSection = "ros__parameters."
	for i, u := range updates {
		if j := strings.Index(u.Name, rosSection); j >= 0 {
			updates[i].Name = u.Name[j+len(rosSection):]
		}
	}

	p, res := Defaults().With(updates)
	if !res.Successful {
		return Params{}, fmt.Errorf("params file %s: %s", path, res.Reason)
	}
	return p, nil
}

// ParamRequest is the payload of the parameter set topic.
type ParamRequest struct {
	ID     string    `yaml:"id"`
	Params yaml.Node `yaml:"params"`
}

// ParamResponse answers a ParamRequest on the result topic.
type ParamResponse struct {
	ID         string `json:"id,omitempty"`
	Successful bool   `json:"successful"`
	Reason     string `json:"reason,omitempty"`
	Version    uint64 `json:"version"`
}

// DecodeParamRequest parses a request envelope, YAML or JSON.
func DecodeParamRequest(data []byte) (string, []Parameter, error) {
	var req ParamRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return "", nil, fmt.Errorf("decode parameter request: %w", err)
	}
	if req.Params.Kind == 0 {
		return req.ID, nil, fmt.Errorf("parameter request %q has no params", req.ID)
	}
	params, err := parametersFromNode(&req.Params)
	if err != nil {
		return req.ID, nil, err
	}
	return req.ID, params, nil
}

// Literal is a parameter assignment as typed by an operator, e.g.
// {"scale_linear.x", "0.8"}. The text is parsed as a YAML scalar so its
// kind survives the trip to the teleop node.
type Literal struct {
	Name string
	Text string
}

// EncodeParamRequest builds a request envelope from operator literals.
func EncodeParamRequest(id string, literals []Literal) ([]byte, error) {
	params := &yaml.Node{Kind: yaml.MappingNode}
	for _, l := range literals {
		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(l.Text), &doc); err != nil {
			return nil, fmt.Errorf("value for %q: %w", l.Name, err)
		}
		if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
			return nil, fmt.Errorf("value for %q is empty", l.Name)
		}
		params.Content = append(params.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: l.Name},
			doc.Content[0],
		)
	}
	return yaml.Marshal(&ParamRequest{ID: id, Params: *params})
}
