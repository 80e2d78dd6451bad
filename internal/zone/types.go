package zone

// Kind is a record type this renderer knows how to emit. The set is closed:
// anything outside it is skipped with a warning rather than trusted as an
// open string.
type Kind string

const (
	SOA   Kind = "SOA"
	NS    Kind = "NS"
	A     Kind = "A"
	AAAA  Kind = "AAAA"
	CNAME Kind = "CNAME"
	MX    Kind = "MX"
	TXT   Kind = "TXT"
)

// sectionOrder fixes the order sections appear in a zone file.
var sectionOrder = []Kind{SOA, NS, A, AAAA, CNAME, MX, TXT}

// ParseKind maps a stored type string onto the closed set.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case SOA, NS, A, AAAA, CNAME, MX, TXT:
		return Kind(s), true
	}
	return "", false
}
