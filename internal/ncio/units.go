package ncio

import "strings"

// UnitsFormat tidies a units string composed from several factors:
// whitespace runs collapse to single spaces and parenthesized factors are
// tightened, so "( mmol m-3 ) ( m )" becomes "(mmol m-3) (m)".
func UnitsFormat(units string) string {
	out := strings.Join(strings.Fields(units), " ")
	out = strings.ReplaceAll(out, "( ", "(")
	out = strings.ReplaceAll(out, " )", ")")
	return out
}
