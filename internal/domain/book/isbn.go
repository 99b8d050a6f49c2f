package book

import (
	"strings"
)

// NormalizeISBN 去掉分隔符与空白,末位x转为大写
// 978-7-115-42802-8 → 9787115428028
func NormalizeISBN(isbn string) string {
	var sb strings.Builder
	sb.Grow(len(isbn))
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == 'x' || r == 'X':
			sb.WriteRune('X')
		}
	}
	return sb.String()
}

// ValidateISBN 校验ISBN-10/ISBN-13(含校验位)
func ValidateISBN(isbn string) error {
	n := NormalizeISBN(isbn)
	switch len(n) {
	case 10:
		if !validISBN10(n) {
			return ErrInvalidISBN
		}
	case 13:
		if !validISBN13(n) {
			return ErrInvalidISBN
		}
	default:
		return ErrInvalidISBN
	}
	return nil
}

func validISBN10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var v int
		switch {
		case c == 'X' && i == 9:
			v = 10
		case c >= '0' && c <= '9':
			v = int(c - '0')
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		v := int(c - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}
