package platform

// Set is an insertion-ordered set of PackageIDs.
// The zero value is ready to use.
type Set struct {
	order []string
	index map[string]struct{}
}

// NewSet builds a set from ids, dropping repeats after their first occurrence.
func NewSet(ids ...string) *Set {
	s := new(Set)
	for _, id := range ids {
		s.Add(id)
	}

	return s
}

// Add appends id unless it is already present and reports whether it was added.
func (s *Set) Add(id string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{}, defaultSetCapacity)
	}

	if _, found := s.index[id]; found {
		return false
	}

	s.index[id] = struct{}{}
	s.order = append(s.order, id)

	return true
}

// Contains reports whether id is in the set.
func (s *Set) Contains(id string) bool {
	_, found := s.index[id]
	return found
}

// Len returns the number of ids in the set.
func (s *Set) Len() int {
	return len(s.order)
}

// Values returns a copy of the ids in insertion order.
func (s *Set) Values() []string {
	return append([]string(nil), s.order...)
}

// defaultSetCapacity covers the platform matrix of a typical release.
const defaultSetCapacity = 16
