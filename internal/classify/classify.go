// Package classify maps a replay file name to its official-match tier.
//
// Scrim files are named "<DDMMYYYY>_<label>", so the first four characters
// are a day-month code. Four fixed, disjoint code sets identify the match
// days of the competitions the team played; anything else is tier 0.
package classify

// Tier is the "officialMatch" value written into each record.
type Tier int

const (
	TierNone Tier = iota // Not an official match day.
	TierGA               // Grand Arena.
	TierNT2              // Nexus Tour, stage 2.
	TierNT3              // Nexus Tour, stage 3.
	TierNT4              // Nexus Tour, stage 4.
)

// prefixLen is the length of the DDMM code at the start of a file name.
const prefixLen = 4

// tierSets is evaluated in order; the first set containing the code wins.
var tierSets = []struct {
	tier  Tier
	codes map[string]bool
}{
	{TierGA, codeSet("1904", "2004", "2104", "2204")},
	{TierNT2, codeSet("0305", "0405")},
	{TierNT3, codeSet("1705", "1805")},
	{TierNT4, codeSet("3105", "0106")},
}

func codeSet(codes ...string) map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

// Classify returns the tier for name, a file name without extension.
func Classify(name string) Tier {
	code, ok := Prefix(name)
	if !ok {
		return TierNone
	}
	for _, s := range tierSets {
		if s.codes[code] {
			return s.tier
		}
	}
	return TierNone
}

// Prefix returns the leading four-digit code of name.
func Prefix(name string) (string, bool) {
	if len(name) < prefixLen {
		return "", false
	}
	code := name[:prefixLen]
	for i := 0; i < prefixLen; i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", false
		}
	}
	return code, true
}

// String returns the short competition label for t.
func (t Tier) String() string {
	switch t {
	case TierGA:
		return "GA"
	case TierNT2:
		return "NT-2"
	case TierNT3:
		return "NT-3"
	case TierNT4:
		return "NT-4"
	default:
		return "none"
	}
}
