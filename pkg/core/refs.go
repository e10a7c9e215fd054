package core

import (
	"regexp"
	"strings"
)

// TableMarker is the placeholder name for the owning view's table.
const TableMarker = "TABLE"

var (
	placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
	spaceRunPattern    = regexp.MustCompile(`[ ]{2,}`)
)

// ReferencedNames returns the distinct placeholder names in template, in the
// order they first appear. The table marker is included when present.
func ReferencedNames(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Placeholder renders name as a template placeholder.
func Placeholder(name string) string {
	return "${" + name + "}"
}

// SplitReference splits a reference into its view and field parts.
// "field" has no view, "view.field" has both, and for "explore.view.field"
// the explore segment is dropped.
func SplitReference(ref string) (view, field string) {
	parts := strings.Split(strings.TrimSpace(ref), ".")
	switch len(parts) {
	case 1:
		return "", parts[0]
	default:
		return parts[len(parts)-2], parts[len(parts)-1]
	}
}

// HasTemplateLogic reports whether sql contains liquid-style tags.
func HasTemplateLogic(sql string) bool {
	return strings.Contains(sql, "{%")
}

// NormalizeWhitespace joins lines, collapses runs of spaces and trims the result.
func NormalizeWhitespace(sql string) string {
	sql = strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(sql)
	sql = spaceRunPattern.ReplaceAllString(sql, " ")
	return strings.TrimSpace(sql)
}

// lowercaseReferences lowercases every field reference but leaves the table marker alone.
func lowercaseReferences(template string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[2 : len(m)-1]
		if name == TableMarker {
			return m
		}
		return Placeholder(strings.ToLower(name))
	})
}
