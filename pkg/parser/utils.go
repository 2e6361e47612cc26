package parser

import (
	"strings"
)

// Month, day and 12-hour directives map to the unpadded Go forms, which
// parse both "1/5/2013" and "01/05/2013".
var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "1",
	'd': "2",
	'e': "_2",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'H': "15",
	'I': "3",
	'M': "04",
	'S': "05",
	'p': "PM",
	'z': "-0700",
	'Z': "MST",
	'%': "%",
}

// goLayout converts a strftime-style date format ("%m/%d/%Y") into a Go
// time layout. Formats without a '%' are assumed to already be Go layouts.
func goLayout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		if layout, ok := strftimeDirectives[format[i]]; ok {
			b.WriteString(layout)
			continue
		}
		// unknown directive, keep it verbatim so parsing fails loudly
		b.WriteByte('%')
		b.WriteByte(format[i])
	}
	return b.String()
}
