package domain

// SweepResult is the outcome of one expiry sweep pass.
type SweepResult struct {
	Expired   int64 `json:"expired"`
	Completed int64 `json:"completed"`
}

// StatusCounts maps every request status to the number of requests in it.
type StatusCounts map[RequestStatus]int64

// NewStatusCounts returns a StatusCounts with every known status set to zero,
// so callers always see all four keys.
func NewStatusCounts() StatusCounts {
	c := make(StatusCounts, len(AllStatuses))
	for _, s := range AllStatuses {
		c[s] = 0
	}
	return c
}

// Total sums the counts across every status.
func (c StatusCounts) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// UserStats is the per-user rollup shown on the profile screen.
type UserStats struct {
	Requests struct {
		Total     int64
		Active    int64
		Completed int64
	}
	Votes struct {
		Total    int64
		Accepted int64
		Rejected int64
	}
}
