package sandwich

import (
	"bytes"
	"fmt"
	"strings"
)

// SummaryTable holds a plain-text summary of robust variance results.
type SummaryTable struct {

	// Title of the table
	Title string

	// Lines displayed above the column block
	Top []string

	// Column names
	ColNames []string

	// Cols[j] is the j^th column, already formatted as strings.
	Cols [][]string

	// Messages displayed below the table
	Msg []string
}

// FmtFloats formats a numeric column for use in a summary table.
func FmtFloats(x []float64) []string {
	var s []string
	for i := range x {
		s = append(s, fmt.Sprintf("%12.4f", x[i]))
	}
	return s
}

// FmtStrings left-justifies a string column to a common width.
func FmtStrings(x []string, h string) []string {
	m := len(h)
	for i := range x {
		if len(x[i]) > m {
			m = len(x[i])
		}
	}
	var s []string
	for i := range x {
		s = append(s, fmt.Sprintf("%-*s", m, x[i]))
	}
	return s
}

// String returns the table as a string.
func (s *SummaryTable) String() string {

	wx := make([]int, len(s.Cols))
	for j, c := range s.Cols {
		wx[j] = len(s.ColNames[j])
		for _, u := range c {
			if len(u) > wx[j] {
				wx[j] = len(u)
			}
		}
	}

	tw := 0
	for _, w := range wx {
		tw += w + 2
	}
	if tw < len(s.Title) {
		tw = len(s.Title)
	}

	var buf bytes.Buffer

	kr := (tw - len(s.Title)) / 2
	if kr < 0 {
		kr = 0
	}
	buf.WriteString(strings.Repeat(" ", kr) + s.Title + "\n")
	buf.WriteString(strings.Repeat("=", tw) + "\n")

	for _, x := range s.Top {
		buf.WriteString(x + "\n")
	}
	buf.WriteString(strings.Repeat("-", tw) + "\n")

	for j, c := range s.ColNames {
		fmt.Fprintf(&buf, "%*s  ", wx[j], c)
	}
	buf.WriteString("\n")
	buf.WriteString(strings.Repeat("-", tw) + "\n")

	if len(s.Cols) > 0 {
		for i := 0; i < len(s.Cols[0]); i++ {
			for j := range s.Cols {
				fmt.Fprintf(&buf, "%*s  ", wx[j], s.Cols[j][i])
			}
			buf.WriteString("\n")
		}
	}
	buf.WriteString(strings.Repeat("-", tw) + "\n")

	for _, msg := range s.Msg {
		buf.WriteString(msg + "\n")
	}

	return buf.String()
}
