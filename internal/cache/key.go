package cache

import (
	"fmt"
	"strings"
)

// GenerateKey builds a composite key from an operation name and its
// parameters, e.g. GenerateKey("dep", 18705, "2024-03-25") = "dep-18705-2024-03-25".
func GenerateKey(operation string, parts ...any) string {
	var b strings.Builder
	b.WriteString(operation)
	for _, p := range parts {
		b.WriteByte('-')
		fmt.Fprint(&b, p)
	}
	return b.String()
}
