package job

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// VarKind identifies the type of a job variable.
type VarKind string

// Variable kinds.
const (
	KindString  VarKind = "string"
	KindBoolean VarKind = "boolean"
)

// VarInfo describes a declared variable for listings (API, CLI help).
type VarInfo struct {
	Name        string  `json:"name"`
	Kind        VarKind `json:"kind"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required"`
	Default     any     `json:"default,omitempty"`
}

// Var is a declared job input.
type Var interface {
	// Info describes the variable.
	Info() VarInfo

	// Parse converts a raw submitted value. present is false when the
	// key was absent from the submitted data.
	Parse(raw any, present bool) (any, error)
}

// StringVar is a free-text variable.
type StringVar struct {
	Name        string
	Description string
	Required    bool
	Default     string
}

// Info describes the variable.
func (v StringVar) Info() VarInfo {
	info := VarInfo{Name: v.Name, Kind: KindString, Description: v.Description, Required: v.Required}
	if v.Default != "" {
		info.Default = v.Default
	}
	return info
}

// Parse accepts a string value. Surrounding whitespace is trimmed.
func (v StringVar) Parse(raw any, present bool) (any, error) {
	if !present || raw == nil {
		if v.Required {
			return nil, fmt.Errorf("%w: %s", ErrMissingVar, v.Name)
		}
		return v.Default, nil
	}

	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidVar, v.Name, raw)
	}

	s = strings.TrimSpace(s)
	if s == "" && v.Required {
		return nil, fmt.Errorf("%w: %s", ErrMissingVar, v.Name)
	}
	return s, nil
}

// BooleanVar is a true/false variable.
type BooleanVar struct {
	Name        string
	Description string
	Default     bool
}

// Info describes the variable.
func (v BooleanVar) Info() VarInfo {
	return VarInfo{Name: v.Name, Kind: KindBoolean, Description: v.Description, Default: v.Default}
}

// Parse accepts a bool, or one of the strings true/false/1/0/yes/no.
func (v BooleanVar) Parse(raw any, present bool) (any, error) {
	if !present || raw == nil {
		return v.Default, nil
	}

	switch b := raw.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidVar, v.Name, b)
	default:
		return nil, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidVar, v.Name, raw)
	}
}

// Values holds parsed variable values keyed by variable name.
type Values map[string]any

// String returns the named string value, or "" if absent.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Bool returns the named boolean value, or false if absent.
func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// ParseValues validates submitted data against the declared variables.
//
// Every problem is reported, joined with errors.Join, so callers can
// check each category with errors.Is.
//
// Parameters:
//   - vars: The job's declared variables
//   - data: Submitted key/value data; may be nil
//
// Returns:
//   - Values: Parsed values for every declared variable
//   - error: ErrMissingVar, ErrInvalidVar and/or ErrUnknownVar on failure
func ParseValues(vars []Var, data map[string]any) (Values, error) {
	declared := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		declared[v.Info().Name] = struct{}{}
	}

	var errs []error

	unknown := make([]string, 0)
	for key := range data {
		if _, ok := declared[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownVar, key))
	}

	values := make(Values, len(vars))
	for _, v := range vars {
		name := v.Info().Name
		raw, present := data[name]
		parsed, err := v.Parse(raw, present)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[name] = parsed
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return values, nil
}

// DescribeVars lists the info of each variable in declaration order.
func DescribeVars(vars []Var) []VarInfo {
	out := make([]VarInfo, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Info())
	}
	return out
}
