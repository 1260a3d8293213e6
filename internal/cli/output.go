package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// printer writes command results either as aligned text or as one JSON
// document per result.
type printer struct {
	format string
	w      io.Writer
}

func (o *RootOptions) printer(w io.Writer) printer {
	return printer{format: o.Format, w: w}
}

// fields is an ordered result. Values are rendered with %v in text mode.
type fields []field

type field struct {
	Key   string
	Value any
}

func (p printer) print(title string, fs fields) error {
	if p.format == "json" {
		m := make(map[string]any, len(fs))
		for _, f := range fs {
			m[f.Key] = jsonValue(f.Value)
		}
		return json.NewEncoder(p.w).Encode(m)
	}

	width := 0
	for _, f := range fs {
		width = max(width, len(f.Key))
	}
	var b strings.Builder
	if title != "" {
		fmt.Fprintln(&b, title)
	}
	for _, f := range fs {
		fmt.Fprintf(&b, "  %-*s  %v\n", width, f.Key, f.Value)
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}

// jsonValue keeps big and key-like values as strings so JSON consumers do
// not lose precision.
func jsonValue(v any) any {
	switch v := v.(type) {
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}
