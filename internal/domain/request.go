// Package domain contains the core data types for the student rideshare API.
// This package has no dependencies on the rest of the module and is imported
// by every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of a ride request.
type RequestStatus string

const (
	StatusActive    RequestStatus = "active"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
	StatusExpired   RequestStatus = "expired"
)

// AllStatuses lists every request status in display order.
var AllStatuses = []RequestStatus{StatusActive, StatusCompleted, StatusCancelled, StatusExpired}

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// CarType is the kind of car the poster is offering or asking for.
type CarType string

const (
	CarSedan     CarType = "sedan"
	CarSUV       CarType = "suv"
	CarHatchback CarType = "hatchback"
	CarAny       CarType = "any"
)

// Valid reports whether c is one of the known car types.
func (c CarType) Valid() bool {
	switch c {
	case CarSedan, CarSUV, CarHatchback, CarAny:
		return true
	}
	return false
}

// Seat capacity bounds for a request.
const (
	MinPersons = 1
	MaxPersons = 8
)

// Request is a posted ride with a seat capacity and a travel time.
// CurrentOccupancy always equals the number of accepted votes on the request.
type Request struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Origin           string
	Destination      string
	TravelDate       time.Time // date only, midnight UTC
	TravelTime       string    // "15:04"
	CarType          CarType
	MaxPersons       int
	CurrentOccupancy int
	Status           RequestStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Full reports whether every seat is taken.
func (r Request) Full() bool {
	return r.CurrentOccupancy >= r.MaxPersons
}

// Reconcile returns the status the request should have once its occupancy is
// set to accepted. Only active and completed move here: cancelled and expired
// are frozen. When reopen is false a completed request stays completed even if
// a seat frees up.
func (r Request) Reconcile(accepted int, reopen bool) RequestStatus {
	switch {
	case r.Status == StatusActive && accepted >= r.MaxPersons:
		return StatusCompleted
	case r.Status == StatusCompleted && accepted < r.MaxPersons && reopen:
		return StatusActive
	default:
		return r.Status
	}
}

// RequestDetails is a request together with the votes cast on it.
// Votes is only populated for the request owner.
type RequestDetails struct {
	Request Request
	Votes   []Vote
}

// RequestFilter narrows a request search. Zero values mean "no filter",
// except Status which defaults to active in the service layer.
type RequestFilter struct {
	Status      RequestStatus
	Origin      string
	Destination string
	TravelDate  *time.Time
	CarType     CarType
	MinSeats    int
}

// RequestUpdate carries the owner-editable fields of a request.
type RequestUpdate struct {
	Origin      string
	Destination string
	TravelDate  time.Time
	TravelTime  string
	CarType     CarType
	MaxPersons  int
}

// StatusPredicate selects requests for a set-based status change.
// Rows must be in From. If StaleBefore or CreatedBefore is set, a row matches
// when its travel date is before StaleBefore OR it was created before
// CreatedBefore. If Full is set, only rows with every seat taken match.
type StatusPredicate struct {
	From          RequestStatus
	StaleBefore   *time.Time
	CreatedBefore *time.Time
	Full          bool
}
