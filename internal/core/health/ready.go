package health

import (
	"encoding/json"
	"net/http"
)

// ReadinessReporter reports whether the service can take traffic and which
// codecs are loaded.
type ReadinessReporter interface {
	Readiness() (ready bool, codecs []string)
}

func Readiness(rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status string   `json:"status"`
			Codecs []string `json:"codecs,omitempty"`
		}
		ready, names := rr.Readiness()
		out := resp{Status: "not_ready", Codecs: names}
		if ready {
			out.Status = "ready"
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
