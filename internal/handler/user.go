package handler

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/studentride/rideshare/backend/internal/auth"
	"github.com/studentride/rideshare/backend/internal/domain"
)

// GetProfile handles GET /api/v1/users/profile.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.users.Profile(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(u))
}

// PutProfile handles PUT /api/v1/users/profile.
// Email defaults to the one carried by the bearer token.
func (s *Server) PutProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		s.writeError(w, r, domain.ErrUnauthorized)
		return
	}
	var body ProfileInput
	if !decodeJSON(w, r, &body) {
		return
	}

	email := id.Email
	if body.Email != nil {
		email = *body.Email
	}
	u, err := s.users.UpsertProfile(r.Context(), domain.User{
		ID:    id.UserID,
		Email: email,
		Name:  body.Name,
		Phone: derefString(body.Phone),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(u))
}

// GetUserStats handles GET /api/v1/users/stats.
func (s *Server) GetUserStats(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.stats.UserStats(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var resp UserStats
	resp.Requests.Total = st.Requests.Total
	resp.Requests.Active = st.Requests.Active
	resp.Requests.Completed = st.Requests.Completed
	resp.Votes.Total = st.Votes.Total
	resp.Votes.Accepted = st.Votes.Accepted
	resp.Votes.Rejected = st.Votes.Rejected
	writeJSON(w, http.StatusOK, resp)
}

// DeleteAccount handles DELETE /api/v1/users/account.
func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.users.DeleteAccount(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ids := make([]openapi_types.UUID, len(out.RecomputedIDs))
	copy(ids, out.RecomputedIDs)
	writeJSON(w, http.StatusOK, AccountDeletion{
		CancelledRequests:  out.CancelledRequests,
		DeletedVotes:       out.DeletedVotes,
		RecomputedRequests: ids,
	})
}
