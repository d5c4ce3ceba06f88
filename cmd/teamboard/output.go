package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// printer renders command results in the selected output format.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch f := strings.ToLower(format); f {
	case formatTable, formatJSON, formatYAML:
		return &printer{w: w, format: f}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// render writes v as JSON or YAML, or calls table for the default format.
func (p *printer) render(v any, table func(tw *tabwriter.Writer)) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		// Go through JSON so YAML keys follow the API field names.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// message prints a confirmation line. Structured formats get an object.
func (p *printer) message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.format == formatTable {
		_, err := fmt.Fprintln(p.w, msg)
		return err
	}
	return p.render(map[string]string{"message": msg}, nil)
}

func row(tw *tabwriter.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
