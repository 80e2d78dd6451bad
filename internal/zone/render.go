package zone

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"zonesync/internal/db"
)

// RenderedZone is the disposable artifact of one generation cycle.
type RenderedZone struct {
	Domain string
	Text   string
	Size   int
}

// Renderer turns a domain's record snapshot into zone file text. It is pure:
// no I/O, and the whole-domain result never fails; individual records that
// cannot be represented are skipped and reported as warnings.
type Renderer struct {
	DefaultTTL uint32
	Primary    string // SOA MNAME template, may include {zone}
	Hostmaster string // SOA RNAME template, may include {zone}

	now func() time.Time
}

func NewRenderer(defaultTTL uint32, primary, hostmaster string) *Renderer {
	return &Renderer{
		DefaultTTL: defaultTTL,
		Primary:    primary,
		Hostmaster: hostmaster,
		now:        time.Now,
	}
}

// Render produces the zone file for domainName from records. Disabled and
// non-authoritative records are excluded. Records are sorted by (type, name)
// before rendering so output is byte-identical for any insertion order.
func (r *Renderer) Render(domainName string, records []db.Record) (RenderedZone, []string) {
	origin := strings.TrimSuffix(strings.ToLower(domainName), ".")

	var warnings []string
	byKind := make(map[Kind][]db.Record)
	for _, rec := range records {
		if rec.Disabled || !rec.Auth {
			continue
		}
		kind, ok := ParseKind(strings.ToUpper(rec.Type))
		if !ok {
			warnings = append(warnings, fmt.Sprintf("skipping %q %s: unsupported record type", rec.Name, rec.Type))
			continue
		}
		byKind[kind] = append(byKind[kind], rec)
	}
	for kind := range byKind {
		recs := byKind[kind]
		// Name alone is not a total order: round-robin sets share one name,
		// so ties break on content (and priority) to keep output stable.
		sort.Slice(recs, func(i, j int) bool {
			if recs[i].Name != recs[j].Name {
				return recs[i].Name < recs[j].Name
			}
			if recs[i].Content != recs[j].Content {
				return recs[i].Content < recs[j].Content
			}
			return prioOf(recs[i]) < prioOf(recs[j])
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "$ORIGIN %s.\n", origin)
	fmt.Fprintf(&b, "$TTL %d\n\n", r.DefaultTTL)

	for _, kind := range sectionOrder {
		lines := 0
		for _, rec := range byKind[kind] {
			if rec.Content == "" {
				warnings = append(warnings, fmt.Sprintf("skipping %q %s: empty content", rec.Name, kind))
				continue
			}
			fmt.Fprintf(&b, "%-20s %d IN %-5s %s\n",
				compactName(rec.Name, origin), r.ttl(rec.TTL), kind, r.rdata(kind, rec))
			lines++
		}
		if kind == SOA && lines == 0 {
			b.WriteString(r.defaultSOA(origin))
			lines++
		}
		if lines > 0 {
			b.WriteString("\n")
		}
	}

	text := b.String()
	return RenderedZone{Domain: origin, Text: text, Size: len(text)}, warnings
}

func prioOf(rec db.Record) int {
	if rec.Prio == nil {
		return 0
	}
	return *rec.Prio
}

func (r *Renderer) ttl(ttl uint32) uint32 {
	if ttl == 0 {
		return r.DefaultTTL
	}
	return ttl
}

func (r *Renderer) rdata(kind Kind, rec db.Record) string {
	switch kind {
	case MX:
		priority := 10
		if rec.Prio != nil {
			priority = *rec.Prio
		}
		return fmt.Sprintf("%d %s", priority, rec.Content)
	case TXT:
		if !strings.HasPrefix(rec.Content, "\"") {
			return fmt.Sprintf("%q", rec.Content)
		}
		return rec.Content
	default:
		return rec.Content
	}
}

// defaultSOA synthesizes an SOA line when the store holds none. The serial
// is derived from the current hour so repeated rebuilds within the hour stay
// byte-identical.
func (r *Renderer) defaultSOA(origin string) string {
	serial := r.now().Format("2006010215")
	primary := resolveSOAName(r.Primary, origin, "ns1.{zone}")
	hostmaster := resolveSOAName(r.Hostmaster, origin, "hostmaster.{zone}")
	rdata := fmt.Sprintf("%s %s %s 7200 3600 1209600 3600", primary, hostmaster, serial)
	return fmt.Sprintf("%-20s %d IN %-5s %s\n", "@", 3600, SOA, rdata)
}

// compactName abbreviates a record name relative to the zone origin: the
// origin itself becomes "@", a proper subdomain loses the origin suffix and
// anything else renders verbatim. Comparison is case-insensitive; the origin
// is already lowercased by Render.
func compactName(name, origin string) string {
	name = strings.ToLower(name)
	if name == origin || name == origin+"." {
		return "@"
	}
	if strings.HasSuffix(name, "."+origin) {
		return strings.TrimSuffix(name, "."+origin)
	}
	return name
}

// resolveSOAName expands the {zone} placeholder and ensures a trailing dot.
func resolveSOAName(input, zone, fallback string) string {
	v := strings.TrimSpace(input)
	if v == "" {
		v = fallback
	}
	v = strings.ReplaceAll(v, "{zone}", zone)
	v = strings.ToLower(strings.TrimSpace(v))
	if !strings.HasSuffix(v, ".") {
		v += "."
	}
	return v
}
