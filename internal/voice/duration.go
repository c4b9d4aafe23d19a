package voice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19, "twenty": 20, "thirty": 30, "forty": 40,
	"fifty": 50, "sixty": 60, "ninety": 90,
}

var unitSeconds = map[string]int{
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
}

// ParseDuration reads a spoken duration such as "five minutes",
// "1 hour 20 minutes" or "an hour and a half" and returns it in seconds.
// Components are summed. Text around the duration is ignored.
func ParseDuration(text string) (int, error) {
	toks := tokenize(text)

	var (
		total    float64
		pending  = -1.0
		half     bool
		lastUnit int
		found    bool
	)
	for i := 0; i < len(toks); i++ {
		tok := toks[i]

		// "and a half" belongs to the number before it when no unit
		// followed yet ("two and a half minutes"), else to the last unit.
		if tok == "and" && i+2 < len(toks) && isOne(toks[i+1]) && toks[i+2] == "half" {
			switch {
			case pending >= 0:
				pending += 0.5
				i += 2
				continue
			case lastUnit > 0:
				total += float64(lastUnit) / 2
				i += 2
				continue
			}
		}

		if n, adv, ok := readNumber(toks, i); ok {
			pending = n
			i += adv
			continue
		}

		switch {
		case tok == "a" || tok == "an":
			if pending < 0 && i+1 < len(toks) {
				if _, unit := unitSeconds[toks[i+1]]; unit {
					pending = 1
				}
			}
		case tok == "half":
			half = true
		default:
			unit, ok := unitSeconds[tok]
			if !ok || pending < 0 {
				continue
			}
			n := pending
			if half {
				n /= 2
			}
			total += n * float64(unit)
			lastUnit = unit
			found = true
			pending = -1
			half = false
		}
	}

	secs := int(math.Round(total))
	if !found || secs <= 0 {
		return 0, fmt.Errorf("duration %q: %w", text, domain.ErrInvalidDuration)
	}
	return secs, nil
}

// ParseNumber returns the first number in text, spelled or written in
// digits.
func ParseNumber(text string) (int, bool) {
	toks := tokenize(text)
	for i := range toks {
		if n, _, ok := readNumber(toks, i); ok {
			return int(n), true
		}
	}
	return 0, false
}

// readNumber reads a number starting at toks[i]. adv is the count of
// extra tokens consumed ("twenty five" consumes one).
func readNumber(toks []string, i int) (float64, int, bool) {
	tok := toks[i]
	if tok != "" && (unicode.IsDigit(rune(tok[0])) || tok[0] == '.') {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, 0, false
		}
		return f, 0, true
	}

	n, ok := numberWords[tok]
	if !ok {
		return 0, 0, false
	}
	if n >= 20 && n%10 == 0 && i+1 < len(toks) {
		if u, ok := numberWords[toks[i+1]]; ok && u > 0 && u < 10 {
			return float64(n + u), 1, true
		}
	}
	return float64(n), 0, true
}

func isOne(tok string) bool {
	return tok == "a" || tok == "an" || tok == "one"
}

// tokenize lowercases text and splits it into words, keeping decimal
// points inside numbers. "5min" becomes "5", "min".
func tokenize(text string) []string {
	text = strings.ToLower(text)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '\''
	})

	var out []string
	for _, f := range fields {
		f = strings.Trim(f, ".'")
		if f == "" {
			continue
		}
		// Split glued digit/letter runs.
		start := 0
		for j := 1; j < len(f); j++ {
			prevDigit := unicode.IsDigit(rune(f[j-1])) || f[j-1] == '.'
			curDigit := unicode.IsDigit(rune(f[j])) || f[j] == '.'
			if prevDigit != curDigit {
				out = append(out, f[start:j])
				start = j
			}
		}
		out = append(out, f[start:])
	}
	return out
}
