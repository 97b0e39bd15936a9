package schema

import (
	"net/netip"
	"regexp"
	"strings"
)

var (
	dateRe       = regexp.MustCompile(`^\d\d\d\d-[0-1]\d-[0-3]\d$`)
	timeRe       = regexp.MustCompile(`(?i)^\d\d:\d\d:\d\d(\.\d+)?(z|[+-]\d\d(:?\d\d)?)?$`)
	dateTimeRe   = regexp.MustCompile(`(?i)^\d\d\d\d-[0-1]\d-[0-3]\d[t\s]\d\d:\d\d:\d\d(\.\d+)?(z|[+-]\d\d(:?\d\d)?)$`)
	uriRe        = regexp.MustCompile(`(?i)^[a-z][a-z0-9+\-.]*:[^\s]*$`)
	uriRefRe     = regexp.MustCompile(`^[^\s]*$`)
	emailRe      = regexp.MustCompile("(?i)^[a-z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*$")
	hostnameRe   = regexp.MustCompile(`(?i)^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[-0-9a-z]{0,61}[0-9a-z])?)*$`)
	uuidRe       = regexp.MustCompile(`(?i)^(?:urn:uuid:)?[0-9a-f]{8}-(?:[0-9a-f]{4}-){3}[0-9a-f]{12}$`)
	pointerRe    = regexp.MustCompile(`^(?:/(?:[^~/]|~0|~1)*)*$`)
	relPointerRe = regexp.MustCompile(`^(?:0|[1-9][0-9]*)(?:#|(?:/(?:[^~/]|~0|~1)*)*)$`)
)

// formats holds the checkers of the supported format names.
var formats = map[string]func(string) bool{
	"date":                  dateRe.MatchString,
	"time":                  timeRe.MatchString,
	"date-time":             dateTimeRe.MatchString,
	"uri":                   uriRe.MatchString,
	"uri-reference":         uriRefRe.MatchString,
	"email":                 emailRe.MatchString,
	"hostname":              func(s string) bool { return len(s) <= 255 && hostnameRe.MatchString(s) },
	"ipv4":                  isIP(netip.Addr.Is4),
	"ipv6":                  isIP(netip.Addr.Is6),
	"uuid":                  uuidRe.MatchString,
	"json-pointer":          pointerRe.MatchString,
	"relative-json-pointer": relPointerRe.MatchString,
	"regex": func(s string) bool {
		_, err := regexp.Compile(s)
		return err == nil
	},
}

func isIP(family func(netip.Addr) bool) func(string) bool {
	return func(s string) bool {
		if strings.Contains(s, "%") {
			return false
		}
		addr, err := netip.ParseAddr(s)
		return err == nil && family(addr)
	}
}

// KnownFormat reports whether name is a supported format.
func KnownFormat(name string) bool {
	_, ok := formats[name]
	return ok
}

// MatchFormat reports whether s satisfies format name. Unknown formats
// match everything; Check rejects them in override documents.
func MatchFormat(name, s string) bool {
	check, ok := formats[name]
	return !ok || check(s)
}
