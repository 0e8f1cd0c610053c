package repository

import (
	"fmt"
	"strings"
)

const maxKeyLen = 768

// ValidKey reports whether k can be used as a single path segment.
func ValidKey(k string) bool {
	if k == "" || len(k) > maxKeyLen {
		return false
	}
	for _, r := range k {
		if r < 0x20 || r == 0x7f {
			return false
		}
		switch r {
		case '/', '.', '#', '$', '[', ']':
			return false
		}
	}
	return true
}

// CleanPath trims surrounding slashes and validates every segment.
func CleanPath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if !ValidKey(seg) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return p, nil
}

// Join concatenates path segments with slashes.
func Join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}

// Ancestors lists the strict ancestors of p from the root down.
func Ancestors(p string) []string {
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}

// IsWithin reports whether p equals root or lies below it.
func IsWithin(p, root string) bool {
	return p == root || strings.HasPrefix(p, root+"/")
}

// Related reports whether a change at one path is visible at the other.
func Related(a, b string) bool {
	return IsWithin(a, b) || IsWithin(b, a)
}
