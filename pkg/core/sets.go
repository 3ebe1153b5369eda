package core

// OrderIDSet is a set of client order ids
type OrderIDSet map[ClientOrderID]struct{}

// NewOrderIDSet creates an empty OrderIDSet
func NewOrderIDSet() OrderIDSet {
	return make(OrderIDSet)
}

// Add inserts the id into the set
func (s OrderIDSet) Add(id ClientOrderID) {
	s[id] = struct{}{}
}

// Remove deletes the id from the set
func (s OrderIDSet) Remove(id ClientOrderID) {
	delete(s, id)
}

// Contains reports membership
func (s OrderIDSet) Contains(id ClientOrderID) bool {
	_, ok := s[id]
	return ok
}

// Copy returns a fresh set with the same members
func (s OrderIDSet) Copy() OrderIDSet {
	out := make(OrderIDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Intersect returns a fresh set with the members present in both sets
func (s OrderIDSet) Intersect(other OrderIDSet) OrderIDSet {
	out := make(OrderIDSet)
	for id := range s {
		if other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// PositionIDSet is a set of position ids
type PositionIDSet map[PositionID]struct{}

// NewPositionIDSet creates an empty PositionIDSet
func NewPositionIDSet() PositionIDSet {
	return make(PositionIDSet)
}

// Add inserts the id into the set
func (s PositionIDSet) Add(id PositionID) {
	s[id] = struct{}{}
}

// Remove deletes the id from the set
func (s PositionIDSet) Remove(id PositionID) {
	delete(s, id)
}

// Contains reports membership
func (s PositionIDSet) Contains(id PositionID) bool {
	_, ok := s[id]
	return ok
}

// Copy returns a fresh set with the same members
func (s PositionIDSet) Copy() PositionIDSet {
	out := make(PositionIDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Intersect returns a fresh set with the members present in both sets
func (s PositionIDSet) Intersect(other PositionIDSet) PositionIDSet {
	out := make(PositionIDSet)
	for id := range s {
		if other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// StrategyIDSet is a set of strategy ids
type StrategyIDSet map[StrategyID]struct{}

// NewStrategyIDSet creates an empty StrategyIDSet
func NewStrategyIDSet() StrategyIDSet {
	return make(StrategyIDSet)
}

// Add inserts the id into the set
func (s StrategyIDSet) Add(id StrategyID) {
	s[id] = struct{}{}
}

// Remove deletes the id from the set
func (s StrategyIDSet) Remove(id StrategyID) {
	delete(s, id)
}

// Contains reports membership
func (s StrategyIDSet) Contains(id StrategyID) bool {
	_, ok := s[id]
	return ok
}

// Copy returns a fresh set with the same members
func (s StrategyIDSet) Copy() StrategyIDSet {
	out := make(StrategyIDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
