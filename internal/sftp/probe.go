package sftp

// ProbeState classifies a metadata lookup.
type ProbeState int

const (
	// Unknown means the lookup failed for a reason other than absence,
	// such as a lost connection or permission error.
	Unknown ProbeState = iota
	Exists
	NotFound
)

func (s ProbeState) String() string {
	switch s {
	case Exists:
		return "exists"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Probe is the strict result of a metadata lookup.
type Probe struct {
	State ProbeState
	IsDir bool
	Err   error // Set when State is Unknown
}
