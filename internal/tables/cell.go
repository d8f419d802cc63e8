// Package tables turns CSV files into index sets and data tables.
//
// The first one or two columns of a file are its key columns: their
// distinct values, in first-seen order, become index sets named after the
// column headers. Every other column becomes a data table keyed by the key
// columns, with cells typed by ParseCell.
package tables

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/sigma/internal/ir"
)

// ParseCell types a raw cell: integers and decimals become numbers,
// "[a, b]" a list, "{a, b}" a set, "{k: v}" a map, quoted or anything else
// text. An empty cell returns nil.
func ParseCell(raw string) ir.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && isNumeric(s) {
		return ir.Number(f)
	}
	switch {
	case enclosed(s, '[', ']'):
		return ir.List(parseItems(s[1 : len(s)-1]))
	case enclosed(s, '{', '}'):
		body := s[1 : len(s)-1]
		parts := splitTop(body, ',')
		if len(parts) > 0 && hasTopColon(parts[0]) {
			return parseMap(parts)
		}
		return ir.NewSet(parseItems(body)...)
	}
	return ir.Text(unquote(s))
}

func parseItems(body string) []ir.Value {
	var out []ir.Value
	for _, p := range splitTop(body, ',') {
		if v := ParseCell(p); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func parseMap(parts []string) ir.Value {
	m := make(ir.Map, 0, len(parts))
	for _, p := range parts {
		kv := splitTop(p, ':')
		if len(kv) != 2 {
			return ir.Text(strings.TrimSpace(p))
		}
		v := ParseCell(kv[1])
		if v == nil {
			continue
		}
		m = append(m, ir.MapEntry{Key: ir.ParseIndex(unquote(strings.TrimSpace(kv[0]))), Value: v})
	}
	return m
}

// splitTop splits on sep outside brackets and quotes.
func splitTop(s string, sep byte) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var (
		out   []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func hasTopColon(s string) bool {
	return len(splitTop(s, ':')) == 2
}

func enclosed(s string, open, close byte) bool {
	return len(s) >= 2 && s[0] == open && s[len(s)-1] == close
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// isNumeric rejects spellings ParseFloat accepts but a table author would
// mean as text, such as "Inf", "0x1p-2" or "1_000".
func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' && c != 'e' && c != 'E' {
			return false
		}
	}
	return true
}
