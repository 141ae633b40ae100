package container

import "sync"

// slot is the cache cell of one shared, private or synthetic key.
type slot struct {
	key      string
	built    bool
	instance any

	// owner is the frame currently running the factory, done is closed when
	// it finishes (successfully or not).
	owner *resolver
	done  chan struct{}
}

// instanceCache memoizes built instances. The partitions are fixed at compile
// time; only slot contents change afterwards, and only under mu.
type instanceCache struct {
	mu       sync.Mutex
	services map[string]*slot
	privates map[string]*slot

	// waiting records pending child frames whose parent is blocked on
	// another goroutine's build.
	waiting map[*resolver]*slot
}

func newInstanceCache() *instanceCache {
	return &instanceCache{
		services: make(map[string]*slot),
		privates: make(map[string]*slot),
		waiting:  make(map[*resolver]*slot),
	}
}

func (c *instanceCache) add(key string, private bool) {
	if private {
		c.privates[key] = &slot{key: key}
		return
	}
	c.services[key] = &slot{key: key}
}

func (c *instanceCache) slot(key string) *slot {
	if s, ok := c.services[key]; ok {
		return s
	}
	return c.privates[key]
}

// getCached returns the memoized instance for key, if any.
func (c *instanceCache) getCached(key string) (any, bool) {
	s := c.slot(key)
	if s == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.instance, s.built
}

// store fills an empty slot once. It reports false if the slot was already
// filled or is being built.
func (c *instanceCache) store(key string, instance any) bool {
	s := c.slot(key)
	if s == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.built || s.owner != nil {
		return false
	}
	s.instance, s.built = instance, true
	return true
}

// acquire either returns the cached instance (hit == true) or makes frame the
// owner of the slot, in which case the caller must build and then release.
// When another goroutine owns the slot, acquire waits for it unless waiting
// would close a cycle between goroutines.
func (c *instanceCache) acquire(key string, requester, frame *resolver) (instance any, hit bool, err error) {
	s := c.slot(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if s.built {
			return s.instance, true, nil
		}
		if s.owner == nil {
			s.owner = frame
			s.done = make(chan struct{})
			return nil, false, nil
		}
		if c.wouldDeadlock(requester, s.owner) {
			return nil, false, newServiceError("get", key, ErrCircularReference).
				withChain(append(requester.chain(), key))
		}
		done := s.done
		c.waiting[frame] = s
		c.mu.Unlock()
		<-done
		c.mu.Lock()
		delete(c.waiting, frame)
	}
}

// release ends a build started by acquire. A failed build leaves the slot
// empty so a later request retries.
func (c *instanceCache) release(key string, instance any, err error) {
	s := c.slot(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		s.instance, s.built = instance, true
	}
	s.owner = nil
	close(s.done)
	s.done = nil
}

// wouldDeadlock walks the wait-for graph starting at owner. Waiting is unsafe
// when some frame that owner (transitively) waits on is the requester or one
// of its ancestors, because those never finish before requester does.
// Must hold c.mu.
func (c *instanceCache) wouldDeadlock(requester, owner *resolver) bool {
	seen := make(map[*resolver]bool)
	frontier := []*resolver{owner}
	for len(frontier) > 0 {
		x := frontier[0]
		frontier = frontier[1:]
		if seen[x] {
			continue
		}
		seen[x] = true
		if requester.descendsFrom(x) {
			return true
		}
		for w, s := range c.waiting {
			if s.owner != nil && w.descendsFrom(x) {
				frontier = append(frontier, s.owner)
			}
		}
	}
	return false
}
