package utils

// NormalizeIdentifier converts an identifier (module, computation or
// instruction name) to a valid one: only letters, digits, and underscores are
// allowed.
//
// Invalid characters are replaced with underscores, and a name starting with a
// digit gets an underscore prefix.
func NormalizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	result := make([]rune, 0, len(name)+1)
	if name[0] >= '0' && name[0] <= '9' {
		result = append(result, '_')
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			result = append(result, r)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
