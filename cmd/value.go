package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Value types accepted by --type.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeJSON   = "json"
)

// parseValue converts command-line text into a value the vault accepts.
// JSON objects become maps and arrays become lists; whole JSON numbers
// become integers.
func parseValue(raw []byte, typ string) (any, error) {
	switch typ {
	case "", TypeString:
		return string(raw), nil
	case TypeInt:
		i, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int value: %w", err)
		}
		return i, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value: %w", err)
		}
		return f, nil
	case TypeJSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var x any
		if err := dec.Decode(&x); err != nil {
			return nil, fmt.Errorf("invalid JSON value: %w", err)
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, fmt.Errorf("invalid JSON value: trailing data")
		}
		return fromJSON(x)
	default:
		return nil, fmt.Errorf("unknown value type %q (want string, int, float or json)", typ)
	}
}

func fromJSON(x any) (any, error) {
	switch t := x.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			v, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			v, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		// Strings, booleans and null pass through; the vault rejects the
		// latter two at top level.
		return x, nil
	}
}
