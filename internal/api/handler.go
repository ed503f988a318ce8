package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantsight/flowcanvas/internal/editor"
	"github.com/quantsight/flowcanvas/internal/graph"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	mgr    *editor.Manager
	router *mux.Router
}

// New creates an HTTP handler and registers all routes.
func New(mgr *editor.Manager) http.Handler {
	h := &Handler{mgr: mgr, router: mux.NewRouter()}

	r := h.router
	r.HandleFunc("/v1/workflows", h.createWorkflow).Methods(http.MethodPost)
	r.HandleFunc("/v1/workflows", h.listWorkflows).Methods(http.MethodGet)
	r.HandleFunc("/v1/workflows/{id}", h.openWorkflow).Methods(http.MethodGet)
	r.HandleFunc("/v1/workflows/{id}/session", h.closeWorkflow).Methods(http.MethodDelete)
	r.HandleFunc("/v1/workflows/{id}/flush", h.flushWorkflow).Methods(http.MethodPost)
	r.HandleFunc("/v1/workflows/{id}/validate", h.validateWorkflow).Methods(http.MethodGet)

	r.HandleFunc("/v1/workflows/{id}/nodes", h.addNode).Methods(http.MethodPost)
	r.HandleFunc("/v1/workflows/{id}/nodes/{nodeId}", h.updateNode).Methods(http.MethodPatch)
	r.HandleFunc("/v1/workflows/{id}/nodes/{nodeId}", h.deleteNode).Methods(http.MethodDelete)
	r.HandleFunc("/v1/workflows/{id}/nodes/{nodeId}/impact", h.deletionImpact).Methods(http.MethodGet)
	r.HandleFunc("/v1/workflows/{id}/edges", h.addEdge).Methods(http.MethodPost)
	r.HandleFunc("/v1/workflows/{id}/edges/{edgeId}", h.removeEdge).Methods(http.MethodDelete)
	r.HandleFunc("/v1/workflows/{id}/datasources", h.addDataSource).Methods(http.MethodPost)

	r.HandleFunc("/v1/workflows/{id}/simulations", h.createSimulation).Methods(http.MethodPost)
	r.HandleFunc("/v1/simulations/{sid}/nodes/{nodeId}/execute", h.executeNode).Methods(http.MethodPost)
	r.HandleFunc("/v1/simulations/{sid}/results", h.simulationResults).Methods(http.MethodGet)
	r.HandleFunc("/v1/simulations/{sid}", h.discardSimulation).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return handlers.CombinedLoggingHandler(os.Stdout,
		handlers.CORS(
			handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(r))
}

type createWorkflowRequest struct {
	SeedStart bool `json:"seedStart"`
}

// POST /v1/workflows — start a brand-new workflow.
func (h *Handler) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var req createWorkflowRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
			return
		}
	}
	sess := h.mgr.Create(req.SeedStart)
	writeJSON(w, http.StatusCreated, sess.Definition())
}

// GET /v1/workflows — list saved workflows.
func (h *Handler) listWorkflows(w http.ResponseWriter, r *http.Request) {
	saved, err := h.mgr.Store().List(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": saved})
}

// GET /v1/workflows/{id} — load a saved workflow and open an editing
// session for it. Loading a different workflow discards the previous
// session's pending autosave and simulations.
func (h *Handler) openWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := h.mgr.Open(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"definition": sess.Definition(),
		"structure":  sess.Structure(),
	})
}

// DELETE /v1/workflows/{id}/session — switch away without saving.
func (h *Handler) closeWorkflow(w http.ResponseWriter, r *http.Request) {
	h.mgr.Close(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/workflows/{id}/flush — explicit save.
func (h *Handler) flushWorkflow(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := sess.Flush(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

// GET /v1/workflows/{id}/validate — structure report.
func (h *Handler) validateWorkflow(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.Structure())
}

// POST /v1/workflows/{id}/nodes
func (h *Handler) addNode(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var node workflow.Node
	if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	def, err := sess.AddNode(node)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

// PATCH /v1/workflows/{id}/nodes/{nodeId}
func (h *Handler) updateNode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, err := h.mgr.Get(vars["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var patch graph.NodePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	def, err := sess.UpdateNode(vars["nodeId"], patch)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// DELETE /v1/workflows/{id}/nodes/{nodeId}
func (h *Handler) deleteNode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, err := h.mgr.Get(vars["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	def, err := sess.DeleteNode(vars["nodeId"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// GET /v1/workflows/{id}/nodes/{nodeId}/impact — deletion preview for the
// confirmation dialog.
func (h *Handler) deletionImpact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, err := h.mgr.Get(vars["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	im, err := sess.DeletionImpact(vars["nodeId"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, im)
}

// POST /v1/workflows/{id}/edges
func (h *Handler) addEdge(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var edge workflow.Edge
	if err := json.NewDecoder(r.Body).Decode(&edge); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	def, err := sess.AddEdge(edge)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

// DELETE /v1/workflows/{id}/edges/{edgeId}
func (h *Handler) removeEdge(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, err := h.mgr.Get(vars["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	def, err := sess.RemoveEdge(vars["edgeId"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// POST /v1/workflows/{id}/datasources
func (h *Handler) addDataSource(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var ds workflow.DataSource
	if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	def, err := sess.AddDataSource(ds)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

// POST /v1/workflows/{id}/simulations — freeze a snapshot.
func (h *Handler) createSimulation(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sess.CreateSimulation()})
}

// POST /v1/simulations/{sid}/nodes/{nodeId}/execute — single-step run.
func (h *Handler) executeNode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := h.mgr.Sim().ExecuteNode(r.Context(), vars["sid"], vars["nodeId"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /v1/simulations/{sid}/results — poll the per-node cache.
func (h *Handler) simulationResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.mgr.Sim().Results(mux.Vars(r)["sid"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// DELETE /v1/simulations/{sid}
func (h *Handler) discardSimulation(w http.ResponseWriter, r *http.Request) {
	h.mgr.Sim().Discard(mux.Vars(r)["sid"])
	w.WriteHeader(http.StatusNoContent)
}

// GET /healthz — liveness probe.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
