package snowflake

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var unquotedIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// splitIdentifier splits a dot separated object name and resolves each part
// the way Snowflake does: unquoted parts are upper cased, quoted parts keep
// their case with doubled quotes collapsed.
func splitIdentifier(name string) ([]string, error) {
	var parts []string
	for i := 0; ; {
		if i < len(name) && name[i] == '"' {
			part, next, err := quotedPart(name, i)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
			i = next
		} else {
			end := strings.IndexByte(name[i:], '.')
			if end < 0 {
				end = len(name) - i
			}
			part := name[i : i+end]
			if !unquotedIdentifier.MatchString(part) {
				return nil, fmt.Errorf("unquoted identifier %q must match %s", part, unquotedIdentifier)
			}
			parts = append(parts, strings.ToUpper(part))
			i += end
		}

		if i == len(name) {
			return parts, nil
		}
		if name[i] != '.' {
			return nil, errors.New("expected a dot after a quoted identifier")
		}
		i++
		if i == len(name) {
			return nil, errors.New("empty identifier")
		}
	}
}

// quotedPart reads the quoted identifier starting at name[start] and returns
// it with the index right after its closing quote.
func quotedPart(name string, start int) (string, int, error) {
	var b strings.Builder
	for i := start + 1; i < len(name); i++ {
		if name[i] != '"' {
			b.WriteByte(name[i])
			continue
		}
		if i+1 < len(name) && name[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		if b.Len() == 0 {
			return "", 0, errors.New("empty identifier")
		}
		return b.String(), i + 1, nil
	}
	return "", 0, errors.New("unterminated quoted identifier")
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
