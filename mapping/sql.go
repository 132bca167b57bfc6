package mapping

import (
	"strconv"
	"strings"
)

// Substitute the association value and map-type variant into |sql|. Single
// quotes of |assoc| are doubled; configuration SQL is otherwise trusted.
func Substitute(sql, assoc, mapType string) string {
	if strings.Contains(sql, AssociationToken) {
		sql = strings.ReplaceAll(sql, AssociationToken, strings.ReplaceAll(assoc, "'", "''"))
	}
	if strings.Contains(sql, MapTypeToken) {
		sql = strings.ReplaceAll(sql, MapTypeToken, mapType)
	}
	return sql
}

// Paginate appends a LIMIT / OFFSET clause to |sql|.
func Paginate(sql string, limit, offset int) string {
	return trimStatement(sql) + " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
}

// StripWhere replaces the top-level WHERE clause of |sql| with an always-true
// predicate, retaining any GROUP BY, HAVING, ORDER BY or LIMIT clause which
// follows it. SQL without a top-level WHERE is returned unchanged.
func StripWhere(sql string) string {
	sql = trimStatement(sql)

	var begin = findKeyword(sql, 0, "WHERE")
	if begin == -1 {
		return sql
	}
	var end = len(sql)
	for _, kw := range [][]string{{"GROUP", "BY"}, {"HAVING"}, {"ORDER", "BY"}, {"LIMIT"}} {
		if ind := findKeyword(sql, begin, kw...); ind != -1 && ind < end {
			end = ind
		}
	}
	var rest = sql[end:]
	if rest != "" {
		rest = " " + rest
	}
	return strings.TrimSpace(sql[:begin]) + " WHERE 1=1" + rest
}

// SortField returns the bare column of the first ORDER BY term of |sql|,
// unwrapping a CAST(expr AS type) and dropping quoting and table qualifiers,
// and whether the term is descending. It returns "" if |sql| has no
// top-level ORDER BY clause.
func SortField(sql string) (field string, desc bool) {
	sql = trimStatement(sql)

	var begin = findKeyword(sql, 0, "ORDER", "BY")
	if begin == -1 {
		return "", false
	}
	var clause = sql[begin:]
	clause = strings.TrimSpace(clause[len("ORDER"):])
	clause = strings.TrimSpace(clause[len("BY"):])

	if ind := findKeyword(clause, 0, "LIMIT"); ind != -1 {
		clause = clause[:ind]
	}
	var term = strings.TrimSpace(splitTopLevel(clause)[0])

	var fields = strings.Fields(term)
	if n := len(fields); n > 1 {
		switch strings.ToUpper(fields[n-1]) {
		case "DESC":
			desc = true
			term = strings.TrimSpace(term[:strings.LastIndex(term, fields[n-1])])
		case "ASC":
			term = strings.TrimSpace(term[:strings.LastIndex(term, fields[n-1])])
		}
	}

	if strings.HasPrefix(strings.ToUpper(term), "CAST") {
		var open, close = strings.IndexByte(term, '('), strings.LastIndexByte(term, ')')
		if open != -1 && close > open {
			var inner = term[open+1 : close]
			if ind := findKeyword(inner, 0, "AS"); ind != -1 {
				inner = inner[:ind]
			}
			term = strings.TrimSpace(inner)
		}
	}
	if ind := strings.LastIndexByte(term, '.'); ind != -1 {
		term = term[ind+1:]
	}
	return strings.Trim(term, "`\"' "), desc
}

func trimStatement(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \t\r\n")
}

// findKeyword returns the index at or after |from| of the keyword sequence
// |kw| (case-insensitive, separated by arbitrary whitespace) which appears at
// parenthesis depth zero and outside of quotes, or -1.
func findKeyword(sql string, from int, kw ...string) int {
	var depth int
	var quote byte

	for i := 0; i < len(sql); i++ {
		var c = sql[i]

		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			continue
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if i < from || depth != 0 || (i != 0 && isIdent(sql[i-1])) {
			continue
		}
		if end, ok := matchWords(sql, i, kw); ok && (end == len(sql) || !isIdent(sql[end])) {
			return i
		}
	}
	return -1
}

// matchWords matches |words| at |i|, separated by whitespace, returning the
// index following the final word.
func matchWords(sql string, i int, words []string) (int, bool) {
	for w, word := range words {
		if w != 0 {
			var j = i
			for j < len(sql) && isSpace(sql[j]) {
				j++
			}
			if j == i {
				return 0, false
			}
			i = j
		}
		if len(sql)-i < len(word) || !strings.EqualFold(sql[i:i+len(word)], word) {
			return 0, false
		}
		i += len(word)
	}
	return i, true
}

// splitTopLevel splits |s| on commas at parenthesis depth zero.
func splitTopLevel(s string) []string {
	var out []string
	var depth, last int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	return append(out, s[last:])
}

func isIdent(c byte) bool {
	return c == '_' || c == '`' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
