package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	applog "vapex/internal/log"
)

type healthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Time     time.Time `json:"time"`
}

// Health is a readiness handler suitable for infrastructure probes. It pings
// the database and reports 503 when it is unreachable.
func Health(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "health check requested", "method", r.Method)
	resp := healthResponse{
		Status:   "ok",
		Database: "ok",
		Time:     time.Now().UTC(),
	}
	status := http.StatusOK

	if err := pingDatabase(r.Context()); err != nil {
		applog.Error(r.Context(), "health check database ping failed", "error", err)
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		applog.Error(r.Context(), "failed to encode health response", "error", err)
		return
	}
	applog.Debug(r.Context(), "health check responded", "status", resp.Status)
}

func pingDatabase(ctx context.Context) error {
	if database == nil {
		return errDatabaseUnavailable
	}
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
