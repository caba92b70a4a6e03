package admin

import "timetracker/internal/models"

// Members is the assignment set of one project: employee ids in the order
// they were first added, without duplicates.
type Members []int64

// NewMembers builds a set from ids, dropping repeats.
func NewMembers(ids ...int64) Members {
	out := make(Members, 0, len(ids))
	for _, id := range ids {
		if !out.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

func membersOf(employees []models.Employee) Members {
	ids := make([]int64, 0, len(employees))
	for _, e := range employees {
		ids = append(ids, e.ID)
	}
	return NewMembers(ids...)
}

// Contains reports whether id is in the set.
func (m Members) Contains(id int64) bool {
	for _, v := range m {
		if v == id {
			return true
		}
	}
	return false
}

// With returns a copy of m that includes id.
func (m Members) With(id int64) Members {
	out := m.Clone()
	if !out.Contains(id) {
		out = append(out, id)
	}
	return out
}

// Without returns a copy of m that excludes id.
func (m Members) Without(id int64) Members {
	out := make(Members, 0, len(m))
	for _, v := range m {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns an independent, non-nil copy.
func (m Members) Clone() Members {
	out := make(Members, len(m))
	copy(out, m)
	return out
}

// IDs returns the set as a plain slice for the update payload.
func (m Members) IDs() []int64 {
	return []int64(m.Clone())
}
