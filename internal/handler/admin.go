package handler

import "net/http"

// RunCleanup handles POST /api/v1/admin/cleanup.
// Returns 409 if a sweep is already running.
func (s *Server) RunCleanup(w http.ResponseWriter, r *http.Request) {
	res, err := s.sweeps.Trigger(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetCleanupStats handles GET /api/v1/admin/stats.
func (s *Server) GetCleanupStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.stats.CleanupStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := CleanupStats{Counts: make(map[string]int64, len(counts)), Total: counts.Total()}
	for status, n := range counts {
		resp.Counts[string(status)] = n
	}
	writeJSON(w, http.StatusOK, resp)
}
