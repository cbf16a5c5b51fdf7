package weights

import "strings"

// SanitizeModelID rewrites id to the allowed charset [A-Za-z0-9._-] (spec
// §6.5), replacing every other rune with '_'. A result equal to "." or
// ".." is itself disallowed (it would otherwise resolve to the weights
// root or its parent) and is rewritten to a single '_'.
func SanitizeModelID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	sanitized := string(out)
	if sanitized == "." || sanitized == ".." {
		return "_"
	}
	if sanitized == "" {
		return "_"
	}
	return sanitized
}

// JoinModelDir builds the per-model weights subdirectory under root (spec
// §6.5: "one subdirectory per sanitized model ID").
func JoinModelDir(root, modelID string) string {
	return strings.TrimRight(root, "/") + "/" + SanitizeModelID(modelID)
}
