package internal

const (
	// DefaultIdentityLow is the first user identity handed to sessions
	DefaultIdentityLow = 10000
	// DefaultIdentityPoolSize is the number of identities in the pool
	DefaultIdentityPoolSize = 100
)

// Allocator hands out user identities from the range [low, low+size-1]
type Allocator struct {
	low  int
	size int
}

// NewAllocator creates an allocator for the range [low, low+size-1].
// A size below 1 is treated as 1.
func NewAllocator(low, size int) *Allocator {
	if size < 1 {
		size = 1
	}
	return &Allocator{low: low, size: size}
}

// DefaultAllocator returns the allocator for [10000, 10099]
func DefaultAllocator() *Allocator {
	return NewAllocator(DefaultIdentityLow, DefaultIdentityPoolSize)
}

// Range returns the inclusive bounds of the pool
func (a *Allocator) Range() (lo, hi int) {
	return a.low, a.low + a.size - 1
}

// Contains reports whether id belongs to the pool
func (a *Allocator) Contains(id int) bool {
	lo, hi := a.Range()
	return id >= lo && id <= hi
}

// Allocate returns the lowest identity for which inUse reports false.
//
// When every identity is taken it returns the lowest one anyway, so two
// live sessions end up sharing an identity. Callers that need strict
// uniqueness must bound the number of live sessions themselves.
func (a *Allocator) Allocate(inUse func(id int) bool) int {
	lo, hi := a.Range()
	for id := lo; id <= hi; id++ {
		if !inUse(id) {
			return id
		}
	}
	LogDebug("identity pool [%d, %d] exhausted, reusing %d", lo, hi, lo)
	return lo
}
