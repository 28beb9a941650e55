package sheets

import (
	"strings"

	"github.com/spf13/cast"
)

// CellText flattens a raw cell value into text. Lark returns hyperlink and
// mention cells as a list of segments; their text and link are concatenated
// so a product URL stays searchable.
func CellText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, seg := range t {
			if s := CellText(seg); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]interface{}:
		var parts []string
		for _, key := range []string{"text", "link"} {
			if s := cast.ToString(t[key]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return cast.ToString(t)
	}
}

// FirstCell returns the text of the first cell of row, or "" for an empty row.
func FirstCell(row []interface{}) string {
	if len(row) == 0 {
		return ""
	}
	return CellText(row[0])
}
