// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package teleop

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind is the declared type of a parameter value.
type Kind int

const (
	KindNotSet Kind = iota
	KindBool
	KindInteger
	KindDouble
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNotSet:
		return "not set"
	case KindBool:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a typed parameter value. Only the field matching Kind is meaningful.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Double float64
	Str    string
}

func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func IntegerValue(i int64) Value { return Value{Kind: KindInteger, Int: i} }
func DoubleValue(f float64) Value { return Value{Kind: KindDouble, Double: f} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// Interface returns the Go value for JSON encoding.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInteger:
		return v.Int
	case KindDouble:
		return v.Double
	case KindString:
		return v.Str
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.Str)
	default:
		return "<not set>"
	}
}

// Parameter is one named value in an update batch.
type Parameter struct {
	Name  string
	Value Value
}

// Result reports whether an update batch was applied.
type Result struct {
	Successful bool   `json:"successful"`
	Reason     string `json:"reason,omitempty"`
}

type declaration struct {
	kind Kind
	get  func(*Params) Value
	set  func(*Params, Value)
}

var declarations = map[string]declaration{}

func init() {
	declarations["require_enable_button"] = declaration{
		kind: KindBool,
		get:  func(p *Params) Value { return BoolValue(p.RequireEnableButton) },
		set:  func(p *Params, v Value) { p.RequireEnableButton = v.Bool },
	}
	declareButton("enable_button", func(p *Params) *int64 { return &p.EnableButton })
	declareButton("enable_turbo_button", func(p *Params) *int64 { return &p.EnableTurboButton })
	declareButton("enable_autorun_button", func(p *Params) *int64 { return &p.EnableAutorunButton })

	axes := func(p *Params) *AxisMap { return &p.Axes }
	adjustment := func(p *Params) *AxisMap { return &p.AdjustmentAxes }
	normal := func(p *Params) *ScaleMap { return &p.Scales.Normal }
	turbo := func(p *Params) *ScaleMap { return &p.Scales.Turbo }
	autorun := func(p *Params) *ScaleMap { return &p.Scales.Autorun }

	for _, c := range linearChannels {
		declareAxis("axis_linear."+c.String(), c, axes)
		declareScale("scale_linear."+c.String(), c, normal)
		declareScale("scale_linear_turbo."+c.String(), c, turbo)
		declareScale("scale_linear_autorun."+c.String(), c, autorun)
	}
	for _, c := range angularChannels {
		declareAxis("axis_angular."+c.String(), c, axes)
		declareAxis("axis_angular_adjustment."+c.String(), c, adjustment)
		declareScale("scale_angular."+c.String(), c, normal)
		declareScale("scale_angular_turbo."+c.String(), c, turbo)
		declareScale("scale_angular_autorun."+c.String(), c, autorun)
	}
}

func declareButton(name string, field func(*Params) *int64) {
	declarations[name] = declaration{
		kind: KindInteger,
		get:  func(p *Params) Value { return IntegerValue(*field(p)) },
		set:  func(p *Params, v Value) { *field(p) = v.Int },
	}
}

func declareAxis(name string, c Channel, m func(*Params) *AxisMap) {
	declarations[name] = declaration{
		kind: KindInteger,
		get:  func(p *Params) Value { return IntegerValue(m(p).Index(c)) },
		set:  func(p *Params, v Value) { m(p).set(c, v.Int) },
	}
}

func declareScale(name string, c Channel, m func(*Params) *ScaleMap) {
	declarations[name] = declaration{
		kind: KindDouble,
		get:  func(p *Params) Value { return DoubleValue(m(p).Factor(c)) },
		set:  func(p *Params, v Value) { m(p).set(c, v.Double) },
	}
}

// ParameterNames lists every declared parameter in sorted order.
func ParameterNames() []string {
	names := make([]string, 0, len(declarations))
	for name := range declarations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeclaredKind returns the declared kind of a parameter.
func DeclaredKind(name string) (Kind, bool) {
	d, ok := declarations[name]
	return d.kind, ok
}

// Get returns the current value of a declared parameter.
func (p *Params) Get(name string) (Value, bool) {
	d, ok := declarations[name]
	if !ok {
		return Value{}, false
	}
	return d.get(p), true
}

// State returns every declared parameter keyed by name, for publishing.
func (p *Params) State() map[string]any {
	out := make(map[string]any, len(declarations))
	for name, d := range declarations {
		out[name] = d.get(p).Interface()
	}
	return out
}

// With returns a copy of p with the batch applied. The batch is applied
// only if every entry names a declared parameter with the declared kind;
// otherwise p is returned unchanged with the reason for the rejection.
func (p Params) With(updates []Parameter) (Params, Result) {
	for _, u := range updates {
		d, ok := declarations[u.Name]
		if !ok {
			return p, Result{Reason: fmt.Sprintf("Parameter '%s' is not declared.", u.Name)}
		}
		if u.Value.Kind != d.kind {
			return p, Result{Reason: fmt.Sprintf("Only %s values can be set for '%s'.", d.kind, u.Name)}
		}
	}
	if len(updates) == 0 {
		return p, Result{Successful: true}
	}

	next := p
	for _, u := range updates {
		declarations[u.Name].set(&next, u.Value)
	}
	next.Version++
	return next, Result{Successful: true}
}
