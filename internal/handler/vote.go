package handler

import (
	"net/http"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/service"
)

// CastVote handles POST /api/v1/votes/{requestId}.
func (s *Server) CastVote(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	requestID, err := pathUUID(r, "requestId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body VoteInput
	if !decodeJSON(w, r, &body) {
		return
	}

	res, err := s.votes.CastVote(r.Context(), service.CastVoteInput{
		VoterID:   caller,
		RequestID: requestID,
		Decision:  domain.VoteDecision(body.Status),
		Note:      derefString(body.Note),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	vote := voteToResponse(res.Vote)
	writeJSON(w, http.StatusOK, VoteResult{Vote: &vote, Request: requestToResponse(res.Request)})
}

// WithdrawVote handles DELETE /api/v1/votes/{requestId}.
// Withdrawing a vote that does not exist still returns 200.
func (s *Server) WithdrawVote(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	requestID, err := pathUUID(r, "requestId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.votes.WithdrawVote(r.Context(), caller, requestID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VoteResult{Request: requestToResponse(res.Request)})
}

// ListRequestVotes handles GET /api/v1/votes/request/{requestId}.
func (s *Server) ListRequestVotes(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	requestID, err := pathUUID(r, "requestId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	votes, err := s.votes.ListForRequest(r.Context(), requestID, caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, votesToResponse(votes))
}

// ListMyVotes handles GET /api/v1/votes/mine.
func (s *Server) ListMyVotes(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	votes, err := s.votes.ListByVoter(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, votesToResponse(votes))
}
