package handler

import (
	"net/http"

	"github.com/studentride/rideshare/backend/internal/domain"
)

// CreateRequest handles POST /api/v1/requests.
func (s *Server) CreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body RequestInput
	if !decodeJSON(w, r, &body) {
		return
	}

	created, err := s.requests.Create(r.Context(), caller, inputToUpdate(body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestToResponse(created))
}

// SearchRequests handles GET /api/v1/requests.
// Supports from, to, date, carType, minSeats, status, page and limit
// (defaults: status=active, page=1, limit=20, max=50).
func (s *Server) SearchRequests(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page := domain.NewPaginationParams(params.Page, params.Limit)
	items, total, err := s.requests.Search(r.Context(), params.filter(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RequestList{
		Data: requestsToResponse(items),
		Pagination: Pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: int(total),
		},
	})
}

// ListMyRequests handles GET /api/v1/requests/mine.
func (s *Server) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.requests.ListByOwner(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestsToResponse(items))
}

// GetRequest handles GET /api/v1/requests/{id}.
func (s *Server) GetRequest(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	details, err := s.requests.Get(r.Context(), id, caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := RequestDetails{Request: requestToResponse(details.Request)}
	if details.Votes != nil {
		resp.Votes = votesToResponse(details.Votes)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateRequest handles PUT /api/v1/requests/{id}.
func (s *Server) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body RequestInput
	if !decodeJSON(w, r, &body) {
		return
	}

	updated, err := s.requests.Update(r.Context(), id, caller, inputToUpdate(body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestToResponse(updated))
}

// CancelRequest handles POST /api/v1/requests/{id}/cancel.
func (s *Server) CancelRequest(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cancelled, err := s.requests.Cancel(r.Context(), id, caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestToResponse(cancelled))
}

// DeleteRequest handles DELETE /api/v1/requests/{id}.
func (s *Server) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.requests.Delete(r.Context(), id, caller); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
