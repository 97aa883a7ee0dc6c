package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var privilegedRoles = map[string]bool{
	"owner":     true,
	"admin":     true,
	"moderator": true,
}

// CanEditUser reports whether requester may edit target. Privileged roles may
// edit every row, everybody else only their own.
func CanEditUser(requester *User, target Row) bool {
	if requester == nil {
		return false
	}
	if IsPrivileged(requester.Role) {
		return true
	}
	return requester.ID == target.ID
}

func IsPrivileged(role string) bool {
	return privilegedRoles[fold(role)]
}

// fold returns the case-folded form of s. Casers are stateful, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

var leadingFloat = regexp.MustCompile(`^-?(?:\d+(?:\.\d*)?|\.\d+)`)

// ParseNumeric extracts a number from v. Numbers are returned as is; strings
// such as "Kingdom #45" lose every character that is not a digit, '.' or '-'
// and the leading float of what remains is parsed ("1.2.3" -> 1.2).
// Anything that does not yield a number becomes 0.
func ParseNumeric(v any) float64 {
	var s string
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case bool:
		return 0
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}

	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)

	lit := leadingFloat.FindString(clean)
	if lit == "" {
		return 0
	}
	n, err := strconv.ParseFloat(lit, 64)
	if err != nil || n == 0 {
		return 0
	}
	return n
}
