package zone

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// Check parses rendered zone text and returns the first syntax error. It
// runs before publishing so a zone the DNS server cannot load never
// replaces a good file.
func Check(origin, text string) error {
	zp := dns.NewZoneParser(strings.NewReader(text), dns.Fqdn(origin), origin)
	n := 0
	for _, ok := zp.Next(); ok; _, ok = zp.Next() {
		n++
	}
	if err := zp.Err(); err != nil {
		return fmt.Errorf("zone %s: %w", origin, err)
	}
	if n == 0 {
		return fmt.Errorf("zone %s: no records parsed", origin)
	}
	return nil
}
