// Package chain walks substitution chains of positions.
package chain

// Link is the adjacency of one position: the position it substitutes for
// (upward) and the position substituting it (downward).
type Link struct {
	ID             int64
	SubstitutesFor *int64
	Substitute     *int64
}

// Navigator is an immutable adjacency view over a set of positions.
// Every walk carries a visited set, so corrupted pointers cannot loop.
type Navigator struct {
	up   map[int64]int64
	down map[int64]int64
	ids  map[int64]struct{}
}

func NewNavigator(links []Link) *Navigator {
	n := &Navigator{
		up:   make(map[int64]int64, len(links)),
		down: make(map[int64]int64, len(links)),
		ids:  make(map[int64]struct{}, len(links)),
	}
	for _, l := range links {
		n.ids[l.ID] = struct{}{}
		if l.SubstitutesFor != nil {
			n.up[l.ID] = *l.SubstitutesFor
		}
		if l.Substitute != nil {
			n.down[l.ID] = *l.Substitute
		}
	}
	return n
}

func (n *Navigator) Has(id int64) bool {
	_, ok := n.ids[id]
	return ok
}

// Principal returns the position that id substitutes for.
func (n *Navigator) Principal(id int64) (int64, bool) {
	v, ok := n.up[id]
	return v, ok
}

// Substitute returns the position that substitutes id.
func (n *Navigator) Substitute(id int64) (int64, bool) {
	v, ok := n.down[id]
	return v, ok
}

// Below returns id followed by every position reached through substitute
// pointers. The walk stops at an unknown id or at the first repeated id.
func (n *Navigator) Below(id int64) []int64 {
	return n.walk(id, n.down)
}

// Above is Below in the substitutes_for direction.
func (n *Navigator) Above(id int64) []int64 {
	return n.walk(id, n.up)
}

func (n *Navigator) walk(start int64, next map[int64]int64) []int64 {
	out := []int64{start}
	visited := map[int64]struct{}{start: {}}
	cur := start
	for {
		nxt, ok := next[cur]
		if !ok || !n.Has(nxt) {
			return out
		}
		if _, seen := visited[nxt]; seen {
			return out
		}
		visited[nxt] = struct{}{}
		out = append(out, nxt)
		cur = nxt
	}
}

// WouldCycle reports whether making positionID a substitute of principalID
// closes a loop: walking upward from the principal meets positionID.
func (n *Navigator) WouldCycle(positionID, principalID int64) bool {
	if positionID == principalID {
		return true
	}
	for _, id := range n.Above(principalID) {
		if id == positionID {
			return true
		}
	}
	// a chain below positionID reaching the principal is the same loop seen from the other side
	for _, id := range n.Below(positionID) {
		if id == principalID {
			return true
		}
	}
	return false
}

// HasCycle reports whether following substitute pointers from id returns to
// an already visited position.
func (n *Navigator) HasCycle(id int64) bool {
	visited := map[int64]struct{}{id: {}}
	cur := id
	for {
		nxt, ok := n.down[cur]
		if !ok || !n.Has(nxt) {
			return false
		}
		if _, seen := visited[nxt]; seen {
			return true
		}
		visited[nxt] = struct{}{}
		cur = nxt
	}
}
