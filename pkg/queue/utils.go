package queue

import (
	"fmt"
	"strings"
)

// qualifiedStructName returns the package-qualified type name of v without pointer markers
func qualifiedStructName(v any) string {
	return strings.TrimLeft(fmt.Sprintf("%T", v), "*")
}
