// Package httpapi is the HTTP surface (spec §6): three POST endpoints over
// the registry and linker, plus a supplemented health check. Routing and
// middleware follow the teacher pack's chi-based gateway
// (DeBrosOfficial/network/pkg/gateway/http_gateway.go) — request ID,
// structured request logging, panic recovery, and a request timeout —
// generalized from a reverse proxy to this service's three JSON handlers.
package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/georgecane/opencoin/internal/engine"
	"github.com/georgecane/opencoin/internal/marshal"
	"github.com/georgecane/opencoin/internal/registry"
	"github.com/georgecane/opencoin/internal/wasmerr"
)

const requestTimeout = 30 * time.Second

// Server wires a Registry and Engine behind an HTTP router.
type Server struct {
	Registry *registry.Registry
	Engine   *engine.Engine
	Logger   *zap.Logger
}

// Router builds the chi.Router for the service.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.handleHealth)
	r.Post("/", s.handleAdhoc)
	r.Post("/register", s.handleRegister)
	r.Post("/execute", s.handleExecute)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type adhocRequest struct {
	WasmHex      string            `json:"wasm_hex"`
	FunctionName string            `json:"function_name"`
	Params       []json.RawMessage `json:"params"`
	HostModules  []string          `json:"host_modules"`
}

func (s *Server) handleAdhoc(w http.ResponseWriter, r *http.Request) {
	var req adhocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	code, err := hex.DecodeString(req.WasmHex)
	if err != nil {
		http.Error(w, "malformed wasm_hex: "+err.Error(), http.StatusBadRequest)
		return
	}

	params, err := parseParams(req.Params)
	if err != nil {
		http.Error(w, "malformed params: "+err.Error(), http.StatusBadRequest)
		return
	}

	results, err := s.Engine.ExecuteAdhoc(r.Context(), s.Registry, code, req.FunctionName, params, req.HostModules)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marshal.EncodeResults(results))
}

type registerRequest struct {
	ModuleName  string   `json:"module_name"`
	WasmHex     string   `json:"wasm_hex"`
	HostModules []string `json:"host_modules"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	code, err := hex.DecodeString(req.WasmHex)
	if err != nil {
		http.Error(w, "malformed wasm_hex: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Registry.Register(r.Context(), req.ModuleName, code, req.HostModules); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Successfully stored module: " + req.ModuleName))
}

type executeRequest struct {
	ModuleName   string            `json:"module_name"`
	FunctionName string            `json:"function_name"`
	Params       []json.RawMessage `json:"params"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	params, err := parseParams(req.Params)
	if err != nil {
		http.Error(w, "malformed params: "+err.Error(), http.StatusBadRequest)
		return
	}

	results, err := s.Engine.ExecuteNamed(r.Context(), s.Registry, req.ModuleName, req.FunctionName, params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marshal.EncodeResults(results))
}

// parseParams decodes each raw JSON number into a marshal.Number, keeping
// its literal text for the V128 path.
func parseParams(raw []json.RawMessage) ([]marshal.Number, error) {
	out := make([]marshal.Number, len(raw))
	for i, r := range raw {
		var f float64
		if err := json.Unmarshal(r, &f); err != nil {
			return nil, err
		}
		out[i] = marshal.Number{Float: f, Raw: string(r)}
	}
	return out, nil
}

// writeError translates a domain error to its HTTP status per spec §6/§7.
// Arity/type mismatch, not-found, and execution traps are 406 (the callee
// the client named or the arguments it gave cannot be satisfied); every
// other domain error — conflict, unmet precondition, codec corruption,
// instantiation failure, transport/timeout — is 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var trapped *wasmerr.ExecutionTrappedError
	if wasmerr.IsNotFound(err) || wasmerr.IsBadRequest(err) || errors.As(err, &trapped) {
		status = http.StatusNotAcceptable
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
