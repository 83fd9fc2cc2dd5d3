package sim

// orderedPipelineSet is an insertion-ordered set of PipelineIDs. The source
// uses a BTreeSet<i64> and relies on ids being assigned monotonically
// upstream so that value order happens to equal insertion order; this type
// makes "iteration order == insertion order" the literal invariant instead
// of an incidental consequence of monotonic ids.
type orderedPipelineSet struct {
	order []PipelineID
	index map[PipelineID]int // id -> position in order
}

func newOrderedPipelineSet() *orderedPipelineSet {
	return &orderedPipelineSet{
		index: make(map[PipelineID]int),
	}
}

// Insert adds id if not already present. Returns false if id was already a
// member (and does not reorder it).
func (s *orderedPipelineSet) Insert(id PipelineID) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = len(s.order)
	s.order = append(s.order, id)
	return true
}

// Contains reports whether id is a member.
func (s *orderedPipelineSet) Contains(id PipelineID) bool {
	_, ok := s.index[id]
	return ok
}

// Remove deletes id if present, returning whether it was a member.
// Removal is O(n) in the number of stored ids, which is acceptable given
// storage limits bound the resident set size in practice.
func (s *orderedPipelineSet) Remove(id PipelineID) bool {
	pos, ok := s.index[id]
	if !ok {
		return false
	}
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.order); i++ {
		s.index[s.order[i]] = i
	}
	return true
}

// Len returns the number of stored ids.
func (s *orderedPipelineSet) Len() int {
	return len(s.order)
}

// Ordered returns the stored ids in insertion order. The caller must not
// mutate the returned slice.
func (s *orderedPipelineSet) Ordered() []PipelineID {
	return s.order
}

// First returns the oldest-inserted id (FIFO candidate).
func (s *orderedPipelineSet) First() (PipelineID, bool) {
	if len(s.order) == 0 {
		return 0, false
	}
	return s.order[0], true
}

// Last returns the newest-inserted id (LIFO candidate).
func (s *orderedPipelineSet) Last() (PipelineID, bool) {
	if len(s.order) == 0 {
		return 0, false
	}
	return s.order[len(s.order)-1], true
}
