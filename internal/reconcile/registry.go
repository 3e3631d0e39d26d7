package reconcile

// Op names the kind of remote operation.
type Op int

const (
	OpLoad Op = iota
	OpStatus
	OpCreate
	OpDelete
	OpBulk
)

func (o Op) String() string {
	switch o {
	case OpLoad:
		return "load"
	case OpStatus:
		return "status"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpBulk:
		return "bulk"
	default:
		return "unknown"
	}
}

// Registry tracks which product ids have an operation in flight. It is not
// safe for concurrent use; the Engine guards it.
type Registry struct {
	ops map[string]Op
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Op)}
}

// Acquire claims id for op. It reports false if id is already claimed.
func (r *Registry) Acquire(id string, op Op) bool {
	if _, busy := r.ops[id]; busy {
		return false
	}
	r.ops[id] = op
	return true
}

// AcquireAll claims every id or none of them.
func (r *Registry) AcquireAll(ids []string, op Op) bool {
	for _, id := range ids {
		if _, busy := r.ops[id]; busy {
			return false
		}
	}
	for _, id := range ids {
		r.ops[id] = op
	}
	return true
}

// Release frees ids. Unknown ids are ignored.
func (r *Registry) Release(ids ...string) {
	for _, id := range ids {
		delete(r.ops, id)
	}
}

// Busy returns the operation in flight for id, if any.
func (r *Registry) Busy(id string) (Op, bool) {
	op, ok := r.ops[id]
	return op, ok
}

// Len returns the number of claimed ids.
func (r *Registry) Len() int { return len(r.ops) }

func (r *Registry) clone() map[string]Op {
	out := make(map[string]Op, len(r.ops))
	for id, op := range r.ops {
		out[id] = op
	}
	return out
}
