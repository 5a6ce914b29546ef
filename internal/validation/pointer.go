package validation

import (
	"strconv"
	"strings"
)

// resolvePointer walks a JSON pointer (RFC 6901) through a decoded body tree.
// The second return value reports whether the location exists at all, which is
// distinct from it holding null.
func resolvePointer(body any, pointer string) (any, bool) {
	if pointer == "" {
		return body, true
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, false
	}

	current := body
	for _, token := range strings.Split(pointer[1:], "/") {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")

		switch node := current.(type) {
		case map[string]any:
			v, ok := node[token]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}
