package syncer

import "slices"

// List is a Cache of records addressable by key. Patches are copy-on-write:
// slices handed out by Value or Items are never modified afterwards.
type List[T any, K comparable] struct {
	*Cache[[]T]
	key func(T) K
}

func NewList[T any, K comparable](fetch FetchFunc[[]T], key func(T) K, opts Options) *List[T, K] {
	return &List[T, K]{Cache: NewCache(fetch, opts), key: key}
}

// ApplyPatch runs fn on the record with key k. Other records are left as they
// were. It reports false when no record matches.
func (l *List[T, K]) ApplyPatch(k K, fn func(*T)) bool {
	return l.Update(func(cur []T) ([]T, bool) {
		i := l.index(cur, k)
		if i < 0 {
			return cur, false
		}
		next := slices.Clone(cur)
		fn(&next[i])
		return next, true
	})
}

// ApplyRemoval drops the record with key k and reports whether it was present.
func (l *List[T, K]) ApplyRemoval(k K) bool {
	return l.Update(func(cur []T) ([]T, bool) {
		i := l.index(cur, k)
		if i < 0 {
			return cur, false
		}
		next := make([]T, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		return next, true
	})
}

// Upsert replaces the record with v's key or prepends v.
func (l *List[T, K]) Upsert(v T) {
	l.Update(func(cur []T) ([]T, bool) {
		if i := l.index(cur, l.key(v)); i >= 0 {
			next := slices.Clone(cur)
			next[i] = v
			return next, true
		}
		next := make([]T, 0, len(cur)+1)
		next = append(next, v)
		next = append(next, cur...)
		return next, true
	})
}

func (l *List[T, K]) Find(k K) (T, bool) {
	cur := l.Value()
	if i := l.index(cur, k); i >= 0 {
		return cur[i], true
	}
	var zero T
	return zero, false
}

// Items returns a copy the caller may modify.
func (l *List[T, K]) Items() []T {
	return slices.Clone(l.Value())
}

func (l *List[T, K]) Len() int {
	return len(l.Value())
}

func (l *List[T, K]) index(items []T, k K) int {
	return slices.IndexFunc(items, func(v T) bool { return l.key(v) == k })
}
