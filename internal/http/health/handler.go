package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/janisto/timestamp-logger/internal/platform/timeutil"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Handler is a plain HTTP handler for the health check endpoint. It bypasses
// huma so liveness probes never hit auth or body negotiation.
func Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Response{Status: "healthy", Time: timeutil.FormatMillis(time.Now())})
}
