package handlers

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status      string `json:"status"`
	Running     int    `json:"running_tasks"`
	Finished    int    `json:"finished_tasks"`
	Persistence bool   `json:"persistence"`
	Error       string `json:"error,omitempty"`
}

// Health reports liveness plus background task counts. When Ready is set and
// fails, the endpoint answers 503 so load balancers stop routing.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	running, finished := a.Tasks.Stats()
	resp := healthResponse{
		Status:      "ok",
		Running:     running,
		Finished:    finished,
		Persistence: a.Packages != nil,
	}
	if a.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Ready(ctx); err != nil {
			a.logger(r).Warn().Err(err).Msg("health: readiness check failed")
			resp.Status = "degraded"
			resp.Error = err.Error()
			a.json(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	a.json(w, http.StatusOK, resp)
}
