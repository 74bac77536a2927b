package service_test

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studentride/rideshare/backend/internal/domain"
	"github.com/studentride/rideshare/backend/internal/repo"
)

// memDB is an in-memory repo.Store. InTx holds a single mutex for the whole
// transaction and works on a copy of the state, so transactions are fully
// serializable and a failed fn leaves nothing behind.
type memDB struct {
	mu    sync.Mutex
	state *memState
	// wrap lets a test decorate the repos handed to each transaction.
	wrap func(repo.Repos) repo.Repos
	txs  int
}

type voteKey struct{ voter, request uuid.UUID }

type memState struct {
	requests map[uuid.UUID]domain.Request
	votes    map[voteKey]domain.Vote
	users    map[uuid.UUID]domain.User
}

func newMemDB() *memDB {
	return &memDB{state: &memState{
		requests: map[uuid.UUID]domain.Request{},
		votes:    map[voteKey]domain.Vote{},
		users:    map[uuid.UUID]domain.User{},
	}}
}

func (s *memState) clone() *memState {
	return &memState{
		requests: maps.Clone(s.requests),
		votes:    maps.Clone(s.votes),
		users:    maps.Clone(s.users),
	}
}

func (db *memDB) InTx(_ context.Context, fn func(repo.Repos) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.txs++

	tx := db.state.clone()
	repos := (&memHandle{st: tx}).repos()
	if db.wrap != nil {
		repos = db.wrap(repos)
	}
	if err := fn(repos); err != nil {
		return err
	}
	db.state = tx
	return nil
}

// Repos returns auto-commit repos: every call locks the db on its own.
func (db *memDB) Repos() repo.Repos {
	return (&memHandle{db: db}).repos()
}

// put stores r as-is, bypassing Create's defaults.
func (db *memDB) put(r domain.Request) domain.Request {
	db.mu.Lock()
	defer db.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	db.state.requests[r.ID] = r
	return r
}

func (db *memDB) request(id uuid.UUID) domain.Request {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.requests[id]
}

func (db *memDB) acceptedVotes(id uuid.UUID) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.countFor(id, domain.VoteAccepted)
}

func (db *memDB) voteCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.state.votes)
}

func (s *memState) countFor(id uuid.UUID, d domain.VoteDecision) int {
	n := 0
	for _, v := range s.votes {
		if v.RequestID == id && v.Decision == d {
			n++
		}
	}
	return n
}

// memHandle is either bound to a transaction copy (st) or to the db itself.
type memHandle struct {
	db *memDB
	st *memState
}

func (h *memHandle) do(fn func(st *memState)) {
	if h.db != nil {
		h.db.mu.Lock()
		defer h.db.mu.Unlock()
		fn(h.db.state)
		return
	}
	fn(h.st)
}

func (h *memHandle) repos() repo.Repos {
	return repo.Repos{
		Requests: memRequests{h},
		Votes:    memVotes{h},
		Users:    memUsers{h},
	}
}

// ---- requests --------------------------------------------------------------

type memRequests struct{ h *memHandle }

var _ repo.RequestRepo = memRequests{}

func (m memRequests) Create(_ context.Context, r domain.Request) (out domain.Request, err error) {
	m.h.do(func(st *memState) {
		r.ID = uuid.New()
		r.CreatedAt = time.Now()
		r.UpdatedAt = r.CreatedAt
		st.requests[r.ID] = r
		out = r
	})
	return out, nil
}

func (m memRequests) GetByID(_ context.Context, id uuid.UUID) (out domain.Request, err error) {
	m.h.do(func(st *memState) {
		r, ok := st.requests[id]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		out = r
	})
	return out, err
}

func (m memRequests) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Request, error) {
	return m.GetByID(ctx, id)
}

func (m memRequests) Search(_ context.Context, f domain.RequestFilter, p domain.PaginationParams) (out []domain.Request, total int64, err error) {
	m.h.do(func(st *memState) {
		var all []domain.Request
		for _, r := range st.requests {
			if f.Status != "" && r.Status != f.Status {
				continue
			}
			if f.Origin != "" && !strings.Contains(strings.ToLower(r.Origin), strings.ToLower(f.Origin)) {
				continue
			}
			if f.Destination != "" && !strings.Contains(strings.ToLower(r.Destination), strings.ToLower(f.Destination)) {
				continue
			}
			if f.TravelDate != nil && !r.TravelDate.Equal(*f.TravelDate) {
				continue
			}
			if f.CarType != "" && r.CarType != f.CarType {
				continue
			}
			if r.MaxPersons-r.CurrentOccupancy < f.MinSeats {
				continue
			}
			all = append(all, r)
		}
		slices.SortFunc(all, func(a, b domain.Request) int { return a.TravelDate.Compare(b.TravelDate) })
		total = int64(len(all))
		lo := min(p.Offset(), len(all))
		hi := min(lo+p.Limit, len(all))
		out = all[lo:hi]
	})
	return out, total, nil
}

func (m memRequests) ListByOwner(_ context.Context, owner uuid.UUID) (out []domain.Request, err error) {
	m.h.do(func(st *memState) {
		for _, r := range st.requests {
			if r.OwnerID == owner {
				out = append(out, r)
			}
		}
		slices.SortFunc(out, func(a, b domain.Request) int { return b.CreatedAt.Compare(a.CreatedAt) })
	})
	return out, nil
}

func (m memRequests) Update(_ context.Context, r domain.Request) (out domain.Request, err error) {
	m.h.do(func(st *memState) {
		cur, ok := st.requests[r.ID]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		cur.Origin, cur.Destination = r.Origin, r.Destination
		cur.TravelDate, cur.TravelTime = r.TravelDate, r.TravelTime
		cur.CarType, cur.MaxPersons = r.CarType, r.MaxPersons
		cur.UpdatedAt = time.Now()
		st.requests[r.ID] = cur
		out = cur
	})
	return out, err
}

func (m memRequests) UpdateStatusAndOccupancy(_ context.Context, id uuid.UUID, occupancy int, status domain.RequestStatus) (out domain.Request, err error) {
	m.h.do(func(st *memState) {
		cur, ok := st.requests[id]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		if occupancy > cur.MaxPersons {
			err = fmt.Errorf("check violation: occupancy %d > max %d", occupancy, cur.MaxPersons)
			return
		}
		cur.CurrentOccupancy, cur.Status = occupancy, status
		cur.UpdatedAt = time.Now()
		st.requests[id] = cur
		out = cur
	})
	return out, err
}

func (m memRequests) Delete(_ context.Context, id uuid.UUID) (err error) {
	m.h.do(func(st *memState) {
		if _, ok := st.requests[id]; !ok {
			err = domain.ErrNotFound
			return
		}
		for k := range st.votes {
			if k.request == id {
				err = fmt.Errorf("foreign key violation: votes reference request %s", id)
				return
			}
		}
		delete(st.requests, id)
	})
	return err
}

func (m memRequests) BatchUpdateStatus(_ context.Context, pred domain.StatusPredicate, to domain.RequestStatus) (n int64, err error) {
	m.h.do(func(st *memState) {
		for id, r := range st.requests {
			if r.Status != pred.From {
				continue
			}
			if pred.StaleBefore != nil || pred.CreatedBefore != nil {
				stale := pred.StaleBefore != nil && r.TravelDate.Before(*pred.StaleBefore)
				old := pred.CreatedBefore != nil && r.CreatedAt.Before(*pred.CreatedBefore)
				if !stale && !old {
					continue
				}
			}
			if pred.Full && !r.Full() {
				continue
			}
			r.Status = to
			st.requests[id] = r
			n++
		}
	})
	return n, nil
}

func (m memRequests) CancelActiveByOwner(_ context.Context, owner uuid.UUID) (n int64, err error) {
	m.h.do(func(st *memState) {
		for id, r := range st.requests {
			if r.OwnerID == owner && r.Status == domain.StatusActive {
				r.Status = domain.StatusCancelled
				st.requests[id] = r
				n++
			}
		}
	})
	return n, nil
}

func (m memRequests) CountByStatus(_ context.Context) (out domain.StatusCounts, err error) {
	m.h.do(func(st *memState) {
		out = domain.StatusCounts{}
		for _, r := range st.requests {
			out[r.Status]++
		}
	})
	return out, nil
}

func (m memRequests) CountByOwnerStatus(_ context.Context, owner uuid.UUID) (out domain.StatusCounts, err error) {
	m.h.do(func(st *memState) {
		out = domain.StatusCounts{}
		for _, r := range st.requests {
			if r.OwnerID == owner {
				out[r.Status]++
			}
		}
	})
	return out, nil
}

// ---- votes -----------------------------------------------------------------

type memVotes struct{ h *memHandle }

var _ repo.VoteRepo = memVotes{}

func (m memVotes) Create(_ context.Context, v domain.Vote) (out domain.Vote, err error) {
	m.h.do(func(st *memState) {
		k := voteKey{v.VoterID, v.RequestID}
		if _, ok := st.votes[k]; ok {
			err = fmt.Errorf("%w: votes_voter_request_key", domain.ErrConstraintViolation)
			return
		}
		v.ID = uuid.New()
		v.CreatedAt = time.Now()
		v.UpdatedAt = v.CreatedAt
		st.votes[k] = v
		out = v
	})
	return out, err
}

func (m memVotes) UpsertDecision(_ context.Context, v domain.Vote) (out domain.Vote, err error) {
	m.h.do(func(st *memState) {
		k := voteKey{v.VoterID, v.RequestID}
		if cur, ok := st.votes[k]; ok {
			cur.Decision, cur.Note = v.Decision, v.Note
			cur.UpdatedAt = time.Now()
			st.votes[k] = cur
			out = cur
			return
		}
		v.ID = uuid.New()
		v.CreatedAt = time.Now()
		v.UpdatedAt = v.CreatedAt
		st.votes[k] = v
		out = v
	})
	return out, nil
}

func (m memVotes) Get(_ context.Context, voterID, requestID uuid.UUID) (out domain.Vote, err error) {
	m.h.do(func(st *memState) {
		v, ok := st.votes[voteKey{voterID, requestID}]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		out = v
	})
	return out, err
}

func (m memVotes) Delete(_ context.Context, voterID, requestID uuid.UUID) (err error) {
	m.h.do(func(st *memState) {
		k := voteKey{voterID, requestID}
		if _, ok := st.votes[k]; !ok {
			err = domain.ErrNotFound
			return
		}
		delete(st.votes, k)
	})
	return err
}

func (m memVotes) DeleteByRequest(_ context.Context, requestID uuid.UUID) (n int64, err error) {
	m.h.do(func(st *memState) {
		for k := range st.votes {
			if k.request == requestID {
				delete(st.votes, k)
				n++
			}
		}
	})
	return n, nil
}

func (m memVotes) DeleteByVoter(_ context.Context, voterID uuid.UUID) (n int64, affected []uuid.UUID, err error) {
	m.h.do(func(st *memState) {
		for k, v := range st.votes {
			if k.voter != voterID {
				continue
			}
			if v.Decision == domain.VoteAccepted {
				affected = append(affected, k.request)
			}
			delete(st.votes, k)
			n++
		}
		slices.SortFunc(affected, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	})
	return n, affected, nil
}

func (m memVotes) CountForRequest(_ context.Context, requestID uuid.UUID, d domain.VoteDecision) (n int, err error) {
	m.h.do(func(st *memState) { n = st.countFor(requestID, d) })
	return n, nil
}

func (m memVotes) ListByRequest(_ context.Context, requestID uuid.UUID) (out []domain.Vote, err error) {
	m.h.do(func(st *memState) {
		for _, v := range st.votes {
			if v.RequestID == requestID {
				out = append(out, v)
			}
		}
	})
	return out, nil
}

func (m memVotes) ListByVoter(_ context.Context, voterID uuid.UUID) (out []domain.Vote, err error) {
	m.h.do(func(st *memState) {
		for _, v := range st.votes {
			if v.VoterID == voterID {
				out = append(out, v)
			}
		}
	})
	return out, nil
}

func (m memVotes) CountByVoterDecision(_ context.Context, voterID uuid.UUID) (out map[domain.VoteDecision]int64, err error) {
	m.h.do(func(st *memState) {
		out = map[domain.VoteDecision]int64{domain.VoteAccepted: 0, domain.VoteRejected: 0}
		for _, v := range st.votes {
			if v.VoterID == voterID {
				out[v.Decision]++
			}
		}
	})
	return out, nil
}

// ---- users -----------------------------------------------------------------

type memUsers struct{ h *memHandle }

var _ repo.UserRepo = memUsers{}

func (m memUsers) Upsert(_ context.Context, u domain.User) (out domain.User, err error) {
	m.h.do(func(st *memState) {
		if cur, ok := st.users[u.ID]; ok {
			u.CreatedAt = cur.CreatedAt
		} else {
			u.CreatedAt = time.Now()
		}
		u.UpdatedAt = time.Now()
		st.users[u.ID] = u
		out = u
	})
	return out, nil
}

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (out domain.User, err error) {
	m.h.do(func(st *memState) {
		u, ok := st.users[id]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		out = u
	})
	return out, err
}

func (m memUsers) Delete(_ context.Context, id uuid.UUID) (err error) {
	m.h.do(func(st *memState) {
		if _, ok := st.users[id]; !ok {
			err = domain.ErrNotFound
			return
		}
		delete(st.users, id)
	})
	return err
}
