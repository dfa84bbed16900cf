package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/envmon/internal/exposition"
	"github.com/google/uuid"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`
}

const defaultFaultLimit = 50

// handleMetrics hands the scrape to the scheduler loop and waits for the
// rendered body.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := &request{ctx: r.Context(), reply: make(chan reply, 1)}
	timeout := time.NewTimer(s.config.ReplyTimeout)
	defer timeout.Stop()

	select {
	case s.requests <- req:
	case <-r.Context().Done():
		return
	case <-timeout.C:
		http.Error(w, "Scheduler busy", http.StatusServiceUnavailable)
		return
	}

	select {
	case rep := <-req.reply:
		if rep.err != nil {
			http.Error(w, rep.err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", exposition.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(rep.body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(rep.body)
	case <-r.Context().Done():
	case <-timeout.C:
		http.Error(w, "Scheduler busy", http.StatusServiceUnavailable)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	status, code := "healthy", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	respondJSON(w, code, HealthResponse{Status: status, Timestamp: time.Now().UTC()})
}

// handleFaults handles GET /agent/faults?limit=N
func (s *Server) handleFaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethod, "Method not allowed", false)
		return
	}

	limit := defaultFaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", false)
			return
		}
		limit = n
	}

	events, err := s.faults.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, err.Error(), true)
		return
	}

	respondJSON(w, http.StatusOK, events)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, retryable bool) {
	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	respondJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}
