package models

// TopicSet is a name→id mapping of taxonomy nodes that preserves the
// upstream response ordering. Names are unique within one API response;
// later duplicates are ignored.
type TopicSet struct {
	names []string
	ids   map[string]int
}

// Add appends a node, keeping the first occurrence of a name.
func (s *TopicSet) Add(name string, id int) {
	if s.ids == nil {
		s.ids = make(map[string]int)
	}
	if _, ok := s.ids[name]; ok {
		return
	}
	s.ids[name] = id
	s.names = append(s.names, name)
}

// ID looks up the id for a node name.
func (s *TopicSet) ID(name string) (int, bool) {
	id, ok := s.ids[name]
	return id, ok
}

// Names returns node names in upstream order.
func (s *TopicSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of nodes.
func (s *TopicSet) Len() int {
	return len(s.names)
}

// Empty reports whether the set has no nodes. An empty topic set marks a
// leaf subject: callers fall back to the subject id itself as selection id.
func (s *TopicSet) Empty() bool {
	return s == nil || len(s.names) == 0
}

// CategoryGroups is the fixed triple of subject groups fetched from the
// subject-menu endpoint in one resolver call.
type CategoryGroups struct {
	Popular    *TopicSet
	Fiction    *TopicSet
	NonFiction *TopicSet
}

// CategoryNames lists the group labels in menu order.
func CategoryNames() []string {
	return []string{"Popular Subjects", "Fiction", "Non-Fiction"}
}

// Group returns the subject group at the given category index (0=Popular,
// 1=Fiction, 2=Non-Fiction).
func (g *CategoryGroups) Group(index int) (*TopicSet, bool) {
	switch index {
	case 0:
		return g.Popular, true
	case 1:
		return g.Fiction, true
	case 2:
		return g.NonFiction, true
	default:
		return nil, false
	}
}

// SubjectID searches all three groups for a subject name.
func (g *CategoryGroups) SubjectID(name string) (int, bool) {
	for _, set := range []*TopicSet{g.Popular, g.Fiction, g.NonFiction} {
		if set == nil {
			continue
		}
		if id, ok := set.ID(name); ok {
			return id, true
		}
	}
	return 0, false
}
