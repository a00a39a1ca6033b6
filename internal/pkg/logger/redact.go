package logger

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

var ipv4Regex = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// RedactIP masks the host part of an address for safe logging.
// "69.191.211.207" → "69.191.211.x"
// "2001:db8::1"    → "2001:db8:x"
// Values that do not parse as an address are returned fully masked.
func RedactIP(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "x.x.x.x"
	}
	if addr.Is4() || addr.Is4In6() {
		b := addr.Unmap().As4()
		return strconv.Itoa(int(b[0])) + "." + strconv.Itoa(int(b[1])) + "." + strconv.Itoa(int(b[2])) + ".x"
	}
	prefix, err := addr.Prefix(32)
	if err != nil {
		return "x:x"
	}
	s := prefix.Addr().String()
	s = strings.TrimSuffix(s, "::")
	return s + ":x"
}
