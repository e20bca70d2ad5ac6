// Package target provides host validation and allow-list expansion for ssh-operations-hub.
package target

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Host represents one validated fleet member: a shared network prefix plus the
// numeric suffix identifying the machine. Immutable once constructed.
type Host struct {
	Prefix string // Three dot-separated octets, e.g. "10.200.142"
	Suffix string // Final octet as a decimal string, e.g. "21"
}

// Addr returns the full dotted-quad address.
func (h Host) Addr() string {
	return h.Prefix + "." + h.Suffix
}

// Label returns the attribution tag prefixed to every output line of this host.
func (h Host) Label() string {
	return fmt.Sprintf("[Client %s | %s]", h.Suffix, h.Addr())
}

var prefixPattern = regexp.MustCompile(`^(\d{1,3}\.){2}\d{1,3}$`)

// ValidatePrefix normalizes and validates a network prefix. One trailing dot is
// stripped; the result must be exactly three dot-separated groups of 1-3 digits,
// each in [0,255].
func ValidatePrefix(raw string) (string, error) {
	prefix := strings.TrimSuffix(raw, ".")

	if !prefixPattern.MatchString(prefix) {
		return "", fmt.Errorf("invalid IP prefix format '%s': use format XXX.XXX.XXX (0-255)", raw)
	}

	for _, octet := range strings.Split(prefix, ".") {
		value, err := strconv.Atoi(octet)
		if err != nil || value > 255 {
			return "", fmt.Errorf("invalid IP prefix '%s': octet '%s' out of range (0-255)", raw, octet)
		}
	}

	return prefix, nil
}

// ExpandAllowList expands allow-list tokens into the set of permitted suffixes.
// Each token is either a bare non-negative integer, kept as-is, or an inclusive
// range "A-B" with A <= B, expanded to every integer in between. Malformed or
// descending tokens contribute nothing; operators rely on this leniency for
// sloppy config files, so it is not an error.
func ExpandAllowList(tokens []string) map[string]struct{} {
	allowed := make(map[string]struct{})

	for _, token := range tokens {
		for _, suffix := range expandToken(token) {
			allowed[suffix] = struct{}{}
		}
	}

	return allowed
}

func expandToken(token string) []string {
	if start, end, ok := strings.Cut(token, "-"); ok {
		startNum, err1 := strconv.Atoi(start)
		endNum, err2 := strconv.Atoi(end)
		if err1 != nil || err2 != nil || startNum < 0 || startNum > endNum {
			return nil
		}

		expanded := make([]string, 0, endNum-startNum+1)
		for i := startNum; i <= endNum; i++ {
			expanded = append(expanded, strconv.Itoa(i))
		}
		return expanded
	}

	if isDigits(token) {
		return []string{token}
	}

	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateSuffixes checks each suffix against the allow-list and builds hosts
// for the ones that pass. Invalid or disallowed suffixes each contribute one
// error string and are skipped; a suffix seen twice is skipped the second time
// and reported in duplicates rather than as an error. Host order follows input
// order of first occurrences.
func ValidateSuffixes(prefix string, suffixes []string, allowed map[string]struct{}) (hosts []Host, duplicates []string, errs []string) {
	seen := make(map[string]bool, len(suffixes))

	for _, suffix := range suffixes {
		if !isDigits(suffix) {
			errs = append(errs, fmt.Sprintf("invalid or disallowed IP suffix '%s'", suffix))
			continue
		}
		if _, ok := allowed[suffix]; !ok {
			errs = append(errs, fmt.Sprintf("invalid or disallowed IP suffix '%s'", suffix))
			continue
		}
		if seen[suffix] {
			duplicates = append(duplicates, suffix)
			continue
		}

		seen[suffix] = true
		hosts = append(hosts, Host{Prefix: prefix, Suffix: suffix})
	}

	return hosts, duplicates, errs
}
