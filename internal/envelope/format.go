package envelope

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Format renders v as deterministic, line-oriented text. Top-level strings
// are returned verbatim; composites are rendered one member per line so
// that line diffs stay readable.
func Format(v Value) string {
	switch v.kind {
	case KindString:
		return v.v.(string)
	case KindInt, KindFloat, KindComposite:
		var sb strings.Builder
		writeNode(&sb, v.v, 0)
		return sb.String()
	}
	return ""
}

func writeNode(sb *strings.Builder, n any, indent int) {
	switch t := n.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(t))
	case int64:
		sb.WriteString(strconv.FormatInt(t, 10))
	case float64:
		sb.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case string:
		sb.WriteString(strconv.Quote(t))
	case []byte:
		sb.WriteString("0x")
		sb.WriteString(hex.EncodeToString(t))
	case Composite:
		if s, ok := t.(fmt.Stringer); ok {
			fmt.Fprintf(sb, "%s(%s)", t.CompositeName(), s.String())
			return
		}
		fmt.Fprintf(sb, "%s(...)", t.CompositeName())
	case List:
		if len(t) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[\n")
		for _, e := range t {
			pad(sb, indent+1)
			writeNode(sb, e, indent+1)
			sb.WriteString(",\n")
		}
		pad(sb, indent)
		sb.WriteString("]")
	case Map:
		if len(t) == 0 {
			sb.WriteString("{}")
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("{\n")
		for _, k := range keys {
			pad(sb, indent+1)
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			writeNode(sb, t[k], indent+1)
			sb.WriteString(",\n")
		}
		pad(sb, indent)
		sb.WriteString("}")
	case *Record:
		sb.WriteString(t.Name)
		if len(t.Fields) == 0 {
			sb.WriteString(" {}")
			return
		}
		sb.WriteString(" {\n")
		for _, f := range t.Fields {
			pad(sb, indent+1)
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			writeNode(sb, f.Value, indent+1)
			sb.WriteString("\n")
		}
		pad(sb, indent)
		sb.WriteString("}")
	default:
		fmt.Fprintf(sb, "%v", t)
	}
}

func pad(sb *strings.Builder, indent int) {
	sb.WriteString(strings.Repeat("  ", indent))
}
