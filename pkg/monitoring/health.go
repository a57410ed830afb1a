package monitoring

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker reports the health of one dependency
type HealthChecker interface {
	Health() error
}

// HealthStatus is the health endpoint response body
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler returns an HTTP handler running the given named checks
func HealthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Checks:    make(map[string]string, len(checks)),
		}

		code := http.StatusOK
		for name, checker := range checks {
			if err := checker.Health(); err != nil {
				status.Status = "unhealthy"
				status.Checks[name] = err.Error()
				code = http.StatusServiceUnavailable
			} else {
				status.Checks[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	}
}
