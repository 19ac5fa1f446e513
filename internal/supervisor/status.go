package supervisor

import (
	"github.com/farmkeep/farmkeep/internal/registry"
	"github.com/farmkeep/farmkeep/internal/shareconf"
)

// Meta is the live metadata attached to a share's status entry.
type Meta struct {
	FarmerState map[string]any `json:"farmerState,omitempty"`
	PID         int            `json:"pid,omitempty"`
	LogSinkPath string         `json:"logSinkPath,omitempty"`
}

// ShareStatus is one entry of the status listing.
type ShareStatus struct {
	ID     string           `json:"id"`
	Config shareconf.Config `json:"config"`
	State  registry.State   `json:"state"`
	Meta   Meta             `json:"meta"`
}

// Status reports the live in-memory state of every registered share at call
// time. Read-only and non-blocking.
func (s *Supervisor) Status() []ShareStatus {
	recs := s.reg.Snapshot()
	out := make([]ShareStatus, 0, len(recs))
	for _, r := range recs {
		st := ShareStatus{
			ID:     r.ID,
			Config: r.Config,
			State:  r.State,
			Meta: Meta{
				FarmerState: r.FarmerState,
				LogSinkPath: r.LogSinkPath,
			},
		}
		if r.Proc != nil {
			st.Meta.PID = r.Proc.PID()
		}
		out = append(out, st)
	}
	return out
}
