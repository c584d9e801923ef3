package api

import (
	"milterpolicy/internal/policy"
	"milterpolicy/internal/types"
	"net/http"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Handler serves read-only lookups against the active policy. Every request
// reads the holder once, so a concurrent reload is never observed halfway.
type Handler struct {
	Holder *policy.Holder
}

func NewHandler(holder *policy.Holder) *Handler {
	return &Handler{Holder: holder}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/rcpt", h.get(h.handleRcpt))
	mux.HandleFunc("/v1/ip", h.get(h.handleIP))
	mux.HandleFunc("/v1/pools", h.get(h.handlePools))
	mux.HandleFunc("/v1/snapshot", h.get(h.handleSnapshot))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *Handler) get(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleRcpt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scopeName := q.Get("scope")
	if scopeName == "" {
		scopeName = types.ScopeGlobal.String()
	}
	scope, ok := types.ParseScope(scopeName)
	if !ok {
		http.Error(w, "unknown scope", http.StatusBadRequest)
		return
	}
	addr := q.Get("addr")
	if addr == "" {
		http.Error(w, "missing addr", http.StatusBadRequest)
		return
	}
	p := h.Holder.Get()
	h.reply(w, http.StatusOK, map[string]any{
		"scope":       scope.String(),
		"addr":        addr,
		"whitelisted": p.RcptWhitelisted(scope, addr),
	})
}

func (h *Handler) handleIP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	acl, ok := types.ParseACL(q.Get("acl"))
	if !ok {
		http.Error(w, "unknown acl", http.StatusBadRequest)
		return
	}
	ip := q.Get("ip")
	if ip == "" {
		http.Error(w, "missing ip", http.StatusBadRequest)
		return
	}
	p := h.Holder.Get()
	h.reply(w, http.StatusOK, map[string]any{
		"acl":    acl.String(),
		"ip":     ip,
		"listed": p.AllowedBy(acl, ip),
	})
}

func (h *Handler) handlePools(w http.ResponseWriter, r *http.Request) {
	h.reply(w, http.StatusOK, h.Holder.Get().Snapshot().Pools)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.Holder.Get().Snapshot()
	expr := r.URL.Query().Get("query")
	if expr == "" {
		h.reply(w, http.StatusOK, snap)
		return
	}
	v, err := snap.Query(expr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.reply(w, http.StatusOK, v)
}

func (h *Handler) reply(w http.ResponseWriter, code int, v any) {
	if err := writeJSON(w, code, v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
