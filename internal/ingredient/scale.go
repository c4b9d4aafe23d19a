package ingredient

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingQtyRe = regexp.MustCompile(`^\s*([\d¼½¾⅓⅔⅛⅜⅝⅞][\d\s/.\-¼½¾⅓⅔⅛⅜⅝⅞]*)\s+(\S.*)$`)
	mixedRe      = regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)$`)
	fracRe       = regexp.MustCompile(`^(\d+)/(\d+)$`)
	rangeRe      = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)$`)
	decimalRe    = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

var vulgarValues = map[rune]string{
	'¼': "1/4", '½': "1/2", '¾': "3/4",
	'⅓': "1/3", '⅔': "2/3",
	'⅛': "1/8", '⅜': "3/8", '⅝': "5/8", '⅞': "7/8",
}

// commonFractions are the fractions a cook expects to read.
var commonFractions = []struct {
	value float64
	text  string
}{
	{0.125, "1/8"},
	{0.25, "1/4"},
	{1.0 / 3, "1/3"},
	{0.5, "1/2"},
	{2.0 / 3, "2/3"},
	{0.75, "3/4"},
}

// ParseQuantity reads "2", "1.5", "3/4", "1 1/2", "1½" or a range like
// "2-3" (its midpoint).
func ParseQuantity(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if v, ok := vulgarValues[r]; ok {
			b.WriteString(" " + v)
			continue
		}
		b.WriteRune(r)
	}
	s = strings.Join(strings.Fields(b.String()), " ")

	if m := mixedRe.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den == 0 {
			return 0, false
		}
		return whole + num/den, true
	}
	if m := fracRe.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den == 0 {
			return 0, false
		}
		return num / den, true
	}
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		return (lo + hi) / 2, true
	}
	if decimalRe.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}
	return 0, false
}

// FormatQuantity renders a quantity the way recipes write it: whole
// numbers, kitchen fractions, mixed numbers, or at most two decimals.
func FormatQuantity(q float64) string {
	if q <= 0 {
		return "0"
	}
	whole := math.Floor(q)
	frac := q - whole

	if frac < 0.01 {
		return strconv.Itoa(int(whole))
	}
	if frac > 0.99 {
		return strconv.Itoa(int(whole) + 1)
	}
	for _, f := range commonFractions {
		if math.Abs(frac-f.value) < 0.02 {
			if whole == 0 {
				return f.text
			}
			return strconv.Itoa(int(whole)) + " " + f.text
		}
	}
	return strconv.FormatFloat(math.Round(q*100)/100, 'f', -1, 64)
}

// Scale multiplies the leading quantity of an ingredient line. Lines
// without a readable quantity are returned unchanged.
func Scale(line string, ratio float64) string {
	if ratio <= 0 || ratio == 1 {
		return line
	}
	m := leadingQtyRe.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	q, ok := ParseQuantity(strings.TrimSpace(m[1]))
	if !ok {
		return line
	}
	return FormatQuantity(q*ratio) + " " + m[2]
}

// ScaleAll scales every line of an ingredient list.
func ScaleAll(lines []string, ratio float64) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Scale(l, ratio)
	}
	return out
}
