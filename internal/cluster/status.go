package cluster

// NotAvailable stands in for a version that could not be determined.
const NotAvailable = "N/A"

// Status is a snapshot of connection health. It is built fresh on every probe.
type Status struct {
	Ready         bool   `json:"ready"`
	ServerVersion string `json:"server_version"`
	ClientVersion string `json:"client_version"`
}

// Unknown is the status reported when a probe fails.
var Unknown = Status{
	Ready:         false,
	ServerVersion: NotAvailable,
	ClientVersion: NotAvailable,
}

// Probe is the result of a best-effort status check. Err is set when the
// probe failed, in which case Status is Unknown.
type Probe struct {
	Status Status
	Err    error
}

// Known reports whether the probe reached the cluster.
func (p Probe) Known() bool {
	return p.Err == nil
}

func unknownProbe(err error) Probe {
	return Probe{Status: Unknown, Err: err}
}
