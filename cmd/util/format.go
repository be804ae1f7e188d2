package util

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

// FormatValue renders a value of the cdt value model in a JSON like
// notation. Maps keep their key order, bytes are printed as base64.
func FormatValue(v any) string {
	var sb strings.Builder
	formatValue(&sb, v)
	return sb.String()
}

func formatValue(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case string:
		sb.WriteString(strconv.Quote(t))
	case []byte:
		sb.WriteString(`b"` + base64.StdEncoding.EncodeToString(t) + `"`)
	case cdt.OrderedList:
		formatList(sb, t)
	case []any:
		formatList(sb, t)
	case cdt.Map:
		sb.WriteString("{")
		for i, e := range t {
			if i > 0 {
				sb.WriteString(", ")
			}
			formatValue(sb, e.Key)
			sb.WriteString(": ")
			formatValue(sb, e.Value)
		}
		sb.WriteString("}")
	default:
		fmt.Fprint(sb, t)
	}
}

func formatList(sb *strings.Builder, items []any) {
	sb.WriteString("[")
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatValue(sb, item)
	}
	sb.WriteString("]")
}
