package hosts

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

// Hostname validation regex - labels of letters, digits and hyphens
var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9\-_]{0,61}[a-zA-Z0-9_])?(\.[a-zA-Z0-9_]([a-zA-Z0-9\-_]{0,61}[a-zA-Z0-9_])?)*\.?$`)

// ValidationResult collects advisory findings about a document's entries.
// Nothing here stops a merge; parsing stays purely syntactic.
type ValidationResult struct {
	IsValid  bool
	Warnings []string
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.IsValid = false
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks that each entry has an IP literal address and a single
// well-formed hostname.
func Validate(entries *OrderedMap[string, string]) *ValidationResult {
	result := &ValidationResult{IsValid: true}
	entries.ForEach(func(host, addr string) {
		if _, err := netip.ParseAddr(addr); err != nil {
			result.addWarning("%s: address %q is not an IP literal", host, addr)
		}
		if strings.ContainsAny(host, " \t") {
			result.addWarning("%s: several names on one line are kept as a single hostname", host)
			return
		}
		if len(host) > 253 || !hostnameRegex.MatchString(host) {
			result.addWarning("%s: malformed hostname", host)
		}
	})
	return result
}
