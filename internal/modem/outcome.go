package modem

// OutcomeKind classifies the result of one AT exchange. A tagged result
// rather than a raw substring search keeps false-positive matches out of the
// callers: they branch on the kind and only look at Raw for diagnostics.
type OutcomeKind int

const (
	// Ack: the expected marker appeared in the response before the deadline.
	Ack OutcomeKind = iota
	// Nack: the modem answered with an ERROR marker before the deadline.
	Nack
	// Timeout: the deadline elapsed with no inbound bytes at all.
	Timeout
	// PartialData: the deadline elapsed with inbound bytes that matched
	// neither the expected marker nor an error marker.
	PartialData
)

func (k OutcomeKind) String() string {
	switch k {
	case Ack:
		return "ack"
	case Nack:
		return "nack"
	case Timeout:
		return "timeout"
	case PartialData:
		return "partial"
	default:
		return "unknown"
	}
}

// Outcome is the structured result of one command/response exchange.
type Outcome struct {
	Kind OutcomeKind
	Raw  string // accumulated response text, for logging and field parsing
}

// OK reports whether the exchange was acknowledged.
func (o Outcome) OK() bool { return o.Kind == Ack }
