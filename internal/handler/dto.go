package handler

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/studentride/rideshare/backend/internal/domain"
)

// JSON shapes follow spec/openapi.yaml. Field names are camelCase to match the
// mobile client.

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// RequestInput is the body of POST and PUT /requests.
type RequestInput struct {
	From       string             `json:"from"`
	To         string             `json:"to"`
	Date       openapi_types.Date `json:"date"`
	Time       string             `json:"time"`
	CarType    *string            `json:"carType,omitempty"`
	MaxPersons int                `json:"maxPersons"`
}

// Request is a ride request as returned by the API.
type Request struct {
	ID               openapi_types.UUID `json:"id"`
	OwnerID          openapi_types.UUID `json:"ownerId"`
	From             string             `json:"from"`
	To               string             `json:"to"`
	Date             openapi_types.Date `json:"date"`
	Time             string             `json:"time"`
	CarType          string             `json:"carType"`
	MaxPersons       int                `json:"maxPersons"`
	CurrentOccupancy int                `json:"currentOccupancy"`
	AvailableSeats   int                `json:"availableSeats"`
	Status           string             `json:"status"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// RequestDetails is a request plus its votes (owner only).
type RequestDetails struct {
	Request
	Votes []Vote `json:"votes,omitempty"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// RequestList is a page of requests.
type RequestList struct {
	Data       []Request  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// VoteInput is the body of POST /votes/{requestId}.
type VoteInput struct {
	Status string  `json:"status"`
	Note   *string `json:"note,omitempty"`
}

// Vote is a vote as returned by the API.
type Vote struct {
	ID        openapi_types.UUID `json:"id"`
	VoterID   openapi_types.UUID `json:"voterId"`
	RequestID openapi_types.UUID `json:"requestId"`
	Status    string             `json:"status"`
	Note      string             `json:"note,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// VoteResult is returned by cast and withdraw. Vote is absent on withdraw.
type VoteResult struct {
	Vote    *Vote   `json:"vote,omitempty"`
	Request Request `json:"request"`
}

// ProfileInput is the body of PUT /users/profile.
type ProfileInput struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Profile is a user profile as returned by the API.
type Profile struct {
	ID        openapi_types.UUID `json:"id"`
	Email     string             `json:"email,omitempty"`
	Name      string             `json:"name"`
	Phone     string             `json:"phone,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// UserStats is the body of GET /users/stats.
type UserStats struct {
	Requests struct {
		Total     int64 `json:"total"`
		Active    int64 `json:"active"`
		Completed int64 `json:"completed"`
	} `json:"requests"`
	Votes struct {
		Total    int64 `json:"total"`
		Accepted int64 `json:"accepted"`
		Rejected int64 `json:"rejected"`
	} `json:"votes"`
}

// AccountDeletion is the body of DELETE /users/account.
type AccountDeletion struct {
	CancelledRequests  int64                `json:"cancelledRequests"`
	DeletedVotes       int64                `json:"deletedVotes"`
	RecomputedRequests []openapi_types.UUID `json:"recomputedRequests"`
}

// CleanupStats is the body of GET /admin/stats.
type CleanupStats struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

func requestToResponse(r domain.Request) Request {
	return Request{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		From:             r.Origin,
		To:               r.Destination,
		Date:             openapi_types.Date{Time: r.TravelDate},
		Time:             r.TravelTime,
		CarType:          string(r.CarType),
		MaxPersons:       r.MaxPersons,
		CurrentOccupancy: r.CurrentOccupancy,
		AvailableSeats:   max(r.MaxPersons-r.CurrentOccupancy, 0),
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func requestsToResponse(rs []domain.Request) []Request {
	out := make([]Request, len(rs))
	for i, r := range rs {
		out[i] = requestToResponse(r)
	}
	return out
}

func inputToUpdate(in RequestInput) domain.RequestUpdate {
	u := domain.RequestUpdate{
		Origin:      in.From,
		Destination: in.To,
		TravelDate:  in.Date.Time,
		TravelTime:  in.Time,
		MaxPersons:  in.MaxPersons,
	}
	if in.CarType != nil {
		u.CarType = domain.CarType(*in.CarType)
	}
	return u
}

func voteToResponse(v domain.Vote) Vote {
	return Vote{
		ID:        v.ID,
		VoterID:   v.VoterID,
		RequestID: v.RequestID,
		Status:    string(v.Decision),
		Note:      v.Note,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func votesToResponse(vs []domain.Vote) []Vote {
	out := make([]Vote, len(vs))
	for i, v := range vs {
		out[i] = voteToResponse(v)
	}
	return out
}

func profileToResponse(u domain.User) Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// derefString safely dereferences a *string, returning "" when nil.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
