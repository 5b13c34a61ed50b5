package validation

import "regexp"

// Both pattern sets are best-effort. They will miss some attacks and
// templates must still encode output.

var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*/?\s*script\b`),
	regexp.MustCompile(`(?i)<\s*iframe\b`),
	regexp.MustCompile(`(?i)<\s*object\b`),
	regexp.MustCompile(`(?i)<\s*embed\b`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)vbscript\s*:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
}

var sqlInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(drop|alter|create|truncate)\s+(table|database|schema|index|view)\b`),
	regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`),
	regexp.MustCompile(`(?i)\binsert\s+into\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\b`),
	regexp.MustCompile(`(?i)\bupdate\s+\w+\s+set\b`),
	regexp.MustCompile(`(?i)\b(exec|execute)\s*\(`),
	regexp.MustCompile(`(?i)'\s*or\s+'?\d+'?\s*=\s*'?\d+`),
	regexp.MustCompile(`['"]\s*\)?\s*;`),
	regexp.MustCompile(`;\s*--`),
	regexp.MustCompile(`/\*.*?\*/`),
}

// HasXSS reports whether input matches a known script injection pattern.
func HasXSS(input string) bool {
	return matchesAny(xssPatterns, input)
}

// HasSQLInjection reports whether input matches a known SQL injection pattern.
func HasSQLInjection(input string) bool {
	return matchesAny(sqlInjectionPatterns, input)
}

// IsSafe reports whether input passes both screens.
func IsSafe(input string) bool {
	return !HasXSS(input) && !HasSQLInjection(input)
}

func matchesAny(patterns []*regexp.Regexp, input string) bool {
	for _, p := range patterns {
		if p.MatchString(input) {
			return true
		}
	}
	return false
}
