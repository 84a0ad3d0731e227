package utils

// Set implements a set for the e comparable type.
type Set[T comparable] map[T]struct{}

// MakeSet returns an empty Set of the given type. It accepts an optional size hint.
func MakeSet[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// SetWith creates a Set[T] with the given elements inserted.
func SetWith[T comparable](elements ...T) Set[T] {
	s := MakeSet[T](len(elements))
	s.Insert(elements...)
	return s
}

// Has returns true if the Set has the given element.
func (s Set[T]) Has(element T) bool {
	_, found := s[element]
	return found
}

// Insert elements into the set.
func (s Set[T]) Insert(elements ...T) {
	for _, element := range elements {
		s[element] = struct{}{}
	}
}

// Sub returns a new Set with the elements of s that are not in s2.
func (s Set[T]) Sub(s2 Set[T]) Set[T] {
	sub := MakeSet[T](len(s))
	for element := range s {
		if !s2.Has(element) {
			sub.Insert(element)
		}
	}
	return sub
}

// Equal returns whether s and s2 hold exactly the same elements.
func (s Set[T]) Equal(s2 Set[T]) bool {
	if len(s) != len(s2) {
		return false
	}
	for element := range s {
		if !s2.Has(element) {
			return false
		}
	}
	return true
}
