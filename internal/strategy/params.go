package strategy

import (
	"fmt"
	"sort"
	"strings"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
)

// ParamKind is the declared type of a template entry.
type ParamKind string

const (
	ParamInt   ParamKind = "int"
	ParamFloat ParamKind = "float"
	ParamBool  ParamKind = "bool"
	ParamEnum  ParamKind = "enum"
)

// Param declares one tunable strategy parameter: its type, default and
// allowed range (or enum values).
type Param struct {
	Name    string    `json:"name"`
	Kind    ParamKind `json:"kind"`
	Default any       `json:"default"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Values  []string  `json:"values,omitempty"`
	Role    string    `json:"role,omitempty"`
}

// Template is the full declared parameter surface of a strategy.
type Template []Param

// Defaults materializes the default value of every parameter.
func (t Template) Defaults() map[string]any {
	out := make(map[string]any, len(t))
	for _, p := range t {
		out[p.Name] = p.Default
	}
	return out
}

// Validate checks params against the template and returns a normalized copy
// with defaults filled in. All offending fields are collected into a single
// error rather than failing on the first.
func (t Template) Validate(params map[string]any) (map[string]any, error) {
	normalized := t.Defaults()
	byName := make(map[string]Param, len(t))
	for _, p := range t {
		byName[p.Name] = p
	}

	var problems []string
	for key, raw := range params {
		p, ok := byName[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: unknown parameter", key))
			continue
		}
		val, err := p.normalize(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		normalized[key] = val
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, enginerr.New(enginerr.KindParameterValidation, "strategy", "validate",
			strings.Join(problems, "; "))
	}
	return normalized, nil
}

func (p Param) normalize(raw any) (any, error) {
	switch p.Kind {
	case ParamInt:
		var v int
		switch n := raw.(type) {
		case int:
			v = n
		case int64:
			v = int(n)
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			v = int(n)
		default:
			return nil, fmt.Errorf("expected integer, got %T", raw)
		}
		if float64(v) < p.Min || float64(v) > p.Max {
			return nil, fmt.Errorf("value %d outside [%g, %g]", v, p.Min, p.Max)
		}
		return v, nil

	case ParamFloat:
		var v float64
		switch n := raw.(type) {
		case float64:
			v = n
		case int:
			v = float64(n)
		case int64:
			v = float64(n)
		default:
			return nil, fmt.Errorf("expected number, got %T", raw)
		}
		if v < p.Min || v > p.Max {
			return nil, fmt.Errorf("value %g outside [%g, %g]", v, p.Min, p.Max)
		}
		return v, nil

	case ParamBool:
		v, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", raw)
		}
		return v, nil

	case ParamEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		for _, allowed := range p.Values {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("value %q not in {%s}", s, strings.Join(p.Values, ", "))
	}
	return nil, fmt.Errorf("unsupported parameter kind %q", p.Kind)
}

func intOf(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatOf(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
