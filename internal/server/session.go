package server

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/trialviz/pkg/calltree"
	errs "github.com/matzehuels/trialviz/pkg/errors"
	"github.com/matzehuels/trialviz/pkg/pipeline"
	"github.com/matzehuels/trialviz/pkg/render/reconcile"
)

// session is one viewer. Its engine is single-threaded; every access goes
// through mu.
type session struct {
	mu      sync.Mutex
	id      string
	source  string
	eng     *reconcile.Engine
	opts    pipeline.Options
	created time.Time
	touched time.Time

	// compare is the pair reported by the last modifier click.
	compare *comparison
}

// comparison is the payload of a modifier click.
type comparison struct {
	Previous string `json:"previous,omitempty"`
	Node     string `json:"node"`
}

func newSession(source string, opts pipeline.Options) *session {
	now := time.Now()
	return &session{
		id:      uuid.NewString(),
		source:  source,
		opts:    opts,
		created: now,
		touched: now,
	}
}

// callbacks records modifier clicks on the session. It must only be
// invoked with mu held, which is the case for every engine call.
func (s *session) callbacks() reconcile.Callbacks {
	return reconcile.Callbacks{
		NodeCtrlSelected: func(prev, n *calltree.Node) {
			c := &comparison{Node: string(n.Key)}
			if prev != nil {
				c.Previous = string(prev.Key)
			}
			s.compare = c
		},
	}
}

// store holds sessions with least-recently-used eviction.
type store struct {
	mu    sync.Mutex
	max   int
	byID  map[string]*list.Element
	order *list.List // front is most recently used
}

func newStore(limit int) *store {
	return &store{max: limit, byID: make(map[string]*list.Element), order: list.New()}
}

func (st *store) add(s *session) (evicted string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.byID[s.id] = st.order.PushFront(s)
	if st.order.Len() > st.max {
		last := st.order.Back()
		old := st.order.Remove(last).(*session)
		delete(st.byID, old.id)
		evicted = old.id
	}
	return evicted
}

func (st *store) get(id string) (*session, error) {
	if err := errs.ValidateSessionID(id); err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	el, ok := st.byID[id]
	if !ok {
		return nil, errs.New(errs.ErrCodeSessionNotFound, "no session %s", id)
	}
	st.order.MoveToFront(el)
	return el.Value.(*session), nil
}

func (st *store) remove(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	el, ok := st.byID[id]
	if !ok {
		return false
	}
	st.order.Remove(el)
	delete(st.byID, id)
	return true
}

// list returns the sessions from most to least recently used.
func (st *store) list() []*session {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*session, 0, st.order.Len())
	for el := st.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*session))
	}
	return out
}

func (st *store) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.order.Len()
}
