package dialect

import "strconv"

// ReplyKind tags the shape of a device reply.
type ReplyKind int

const (
	// Unmatched replies match neither a sentinel nor a response pattern.
	Unmatched ReplyKind = iota
	// ZoneOff is the human readable sentence a device sends instead of a
	// structured status when the zone is powered down.
	ZoneOff
	// Structured replies matched one of the response patterns.
	Structured
)

func (k ReplyKind) String() string {
	switch k {
	case Unmatched:
		return "unmatched"
	case ZoneOff:
		return "zone-off"
	case Structured:
		return "structured"
	default:
		return "ReplyKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Reply is a resolved device reply.
type Reply struct {
	Kind ReplyKind
	// Zone is set for ZoneOff replies.
	Zone int
	// Name is the response pattern name for Structured replies.
	Name string
	// Status holds the captured fields of Structured replies.
	Status Status
	// Text is the reply as received.
	Text string
}

// Resolve identifies the shape of text. Sentinel "zone off" replies are
// checked first, then the response patterns via Classify.
//
// A sentinel either names its zone in the catalog or captures it in a
// "zone" group.
func (d *Dialect) Resolve(text string) Reply {
	for _, s := range d.sentinels {
		m := s.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		zone := s.zone
		if i := s.re.SubexpIndex("zone"); i > 0 && m[i] != "" {
			if z, err := strconv.Atoi(m[i]); err == nil {
				zone = z
			}
		}
		return Reply{Kind: ZoneOff, Zone: zone, Text: text}
	}

	if name, status, ok := d.Classify(text); ok {
		return Reply{Kind: Structured, Name: name, Status: status, Text: text}
	}

	return Reply{Kind: Unmatched, Text: text}
}
