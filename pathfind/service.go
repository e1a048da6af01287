package pathfind

import "github.com/citygrid/citygrid/roads"

// Request is a pending path query. Requester is the citizen's stable id;
// duplicate requests from the same requester are coalesced.
type Request struct {
	Requester      uint32
	FromX, FromY   int
	ToX, ToY       int
}

// Result is the outcome of one request: either an ordered node sequence
// from source to goal inclusive, or Found=false (NoPathFound).
type Result struct {
	Requester uint32
	Path      [][2]int
	Found     bool
}

// Service owns the FIFO request queue and drains it under the per-tick
// budget. Requests beyond the budget are deferred, never cancelled.
type Service struct {
	astar   *AStar
	queue   []Request
	pending map[uint32]struct{}

	budget     int
	snapRadius int
}

// NewService creates a pathfinding service with the given per-tick budget
// and snap-to-road radius in cells.
func NewService(budget, snapRadius int) *Service {
	return &Service{
		astar:      NewAStar(),
		pending:    make(map[uint32]struct{}),
		budget:     budget,
		snapRadius: snapRadius,
	}
}

// Enqueue adds a request unless the requester already has one pending.
func (s *Service) Enqueue(r Request) {
	if _, dup := s.pending[r.Requester]; dup {
		return
	}
	s.pending[r.Requester] = struct{}{}
	s.queue = append(s.queue, r)
}

// QueueLen returns the number of waiting requests.
func (s *Service) QueueLen() int {
	return len(s.queue)
}

// Drain solves at most the budget's worth of queued requests against the
// given CSR view and returns their results in request order. The caller
// rebuilds the CSR before draining when the road graph is dirty, so a
// stale graph never surfaces to requesters.
func (s *Service) Drain(csr *roads.CSR) []Result {
	n := len(s.queue)
	if n > s.budget {
		n = s.budget
	}
	if n == 0 {
		return nil
	}
	results := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		req := s.queue[i]
		delete(s.pending, req.Requester)
		results = append(results, s.solve(csr, req))
	}
	s.queue = s.queue[:copy(s.queue, s.queue[n:])]
	return results
}

func (s *Service) solve(csr *roads.CSR, req Request) Result {
	res := Result{Requester: req.Requester}

	fx, fy, ok := NearestRoad(csr, req.FromX, req.FromY, s.snapRadius)
	if !ok {
		return res
	}
	tx, ty, ok := NearestRoad(csr, req.ToX, req.ToY, s.snapRadius)
	if !ok {
		return res
	}

	path := s.astar.FindPath(csr, csr.NodeAt(fx, fy), csr.NodeAt(tx, ty))
	if path == nil {
		return res
	}
	res.Path = path
	res.Found = true
	return res
}
