package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/adapters/datasource"
	"github.com/datasage-io/datasage-engine/pkg/config"
)

// SchemaIndex is the slice of the index the health handler needs.
type SchemaIndex interface {
	Count() int
}

// DatabaseManager is the slice of the datasource manager the health handler
// needs for readiness probing.
type DatabaseManager interface {
	TargetNames() []string
	Runner(ctx context.Context, name string) (datasource.QueryRunner, error)
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// ReadyResponse reports whether the engine can usefully answer questions.
type ReadyResponse struct {
	Status        string            `json:"status"`
	IndexedTables int               `json:"indexed_tables"`
	Databases     map[string]string `json:"databases"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg     *config.Config
	index   SchemaIndex
	manager DatabaseManager
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with the given configuration.
func NewHealthHandler(cfg *config.Config, index SchemaIndex, manager DatabaseManager, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, index: index, manager: manager, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests: pure liveness, no dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready handles GET /ready requests. The engine is ready when the schema
// index holds at least one table and every configured target answers a ping.
// An unreachable target degrades readiness but is reported per database so
// operators see which one is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	indexed := h.index.Count()
	status := "ready"
	if indexed == 0 {
		status = "not_ready"
	}

	names := h.manager.TargetNames()
	sort.Strings(names)
	databases := make(map[string]string, len(names))
	for _, name := range names {
		runner, err := h.manager.Runner(ctx, name)
		if err == nil {
			err = runner.Ping(ctx)
		}
		if err != nil {
			databases[name] = "unreachable"
			status = "not_ready"
			continue
		}
		databases[name] = "ok"
	}

	code := http.StatusOK
	if status != "ready" {
		code = http.StatusServiceUnavailable
	}

	if err := WriteJSON(w, code, ReadyResponse{
		Status:        status,
		IndexedTables: indexed,
		Databases:     databases,
	}); err != nil {
		h.logger.Error("Failed to encode ready response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "datasage-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
