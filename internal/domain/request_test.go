package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studentride/rideshare/backend/internal/domain"
)

func TestRequest_Reconcile(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.RequestStatus
		max      int
		accepted int
		reopen   bool
		want     domain.RequestStatus
	}{
		{"active below capacity stays active", domain.StatusActive, 3, 2, true, domain.StatusActive},
		{"active at capacity completes", domain.StatusActive, 2, 2, true, domain.StatusCompleted},
		{"completed with freed seat reopens", domain.StatusCompleted, 3, 2, true, domain.StatusActive},
		{"completed with freed seat stays when reopen disabled", domain.StatusCompleted, 3, 2, false, domain.StatusCompleted},
		{"completed still full stays completed", domain.StatusCompleted, 3, 3, true, domain.StatusCompleted},
		{"cancelled is frozen when full", domain.StatusCancelled, 2, 2, true, domain.StatusCancelled},
		{"expired is frozen when full", domain.StatusExpired, 2, 2, true, domain.StatusExpired},
		{"expired is frozen when emptied", domain.StatusExpired, 2, 0, true, domain.StatusExpired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := domain.Request{Status: tc.status, MaxPersons: tc.max}
			assert.Equal(t, tc.want, r.Reconcile(tc.accepted, tc.reopen))
		})
	}
}

func TestNewPaginationParams(t *testing.T) {
	ptr := func(v int) *int { return &v }

	assert.Equal(t, domain.PaginationParams{Page: 1, Limit: 20}, domain.NewPaginationParams(nil, nil))
	assert.Equal(t, domain.PaginationParams{Page: 3, Limit: 10}, domain.NewPaginationParams(ptr(3), ptr(10)))
	assert.Equal(t, domain.PaginationParams{Page: 1, Limit: domain.MaxPageLimit}, domain.NewPaginationParams(ptr(0), ptr(500)))
	assert.Equal(t, 20, domain.PaginationParams{Page: 3, Limit: 10}.Offset())
}

func TestNewStatusCounts_zeroFilled(t *testing.T) {
	c := domain.NewStatusCounts()

	assert.Len(t, c, 4)
	for _, s := range domain.AllStatuses {
		assert.Zero(t, c[s])
	}
	c[domain.StatusActive] = 2
	c[domain.StatusExpired] = 3
	assert.EqualValues(t, 5, c.Total())
}
