package viewer

// Position addresses a story by author position and index inside the author.
type Position struct {
	Group int
	Index int
}

// NextPosition returns the story after pos. It moves inside the author first,
// then to the first story of the next author. ok is false past the last story
// of the last author.
func NextPosition(g *Groups, pos Position) (next Position, ok bool) {
	group := g.At(pos.Group)
	if group == nil {
		return pos, false
	}
	if pos.Index+1 < len(group.Stories) {
		return Position{Group: pos.Group, Index: pos.Index + 1}, true
	}
	if pos.Group+1 < g.Len() {
		return Position{Group: pos.Group + 1, Index: 0}, true
	}
	return pos, false
}

// PrevPosition returns the story before pos, crossing into the last story of
// the previous author. At the very first story it returns pos unchanged.
func PrevPosition(g *Groups, pos Position) Position {
	if g.At(pos.Group) == nil {
		return pos
	}
	if pos.Index > 0 {
		return Position{Group: pos.Group, Index: pos.Index - 1}
	}
	if prev := g.At(pos.Group - 1); prev != nil {
		return Position{Group: pos.Group - 1, Index: len(prev.Stories) - 1}
	}
	return pos
}
