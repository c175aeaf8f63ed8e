package viewer

type ViewedKey struct {
	UserID string `json:"userId"`
	Index  int    `json:"index"`
}

// ViewedSet only grows. Keys are reported in the order they were first seen.
type ViewedSet struct {
	seen  map[ViewedKey]struct{}
	order []ViewedKey
}

func NewViewedSet() *ViewedSet {
	return &ViewedSet{seen: make(map[ViewedKey]struct{})}
}

func (v *ViewedSet) Add(k ViewedKey) {
	if _, ok := v.seen[k]; ok {
		return
	}
	v.seen[k] = struct{}{}
	v.order = append(v.order, k)
}

func (v *ViewedSet) Has(k ViewedKey) bool {
	_, ok := v.seen[k]
	return ok
}

func (v *ViewedSet) Len() int {
	return len(v.order)
}

func (v *ViewedSet) Keys() []ViewedKey {
	return append([]ViewedKey(nil), v.order...)
}
