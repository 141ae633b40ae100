package container

import "sort"

// DefaultMaxAliasHops bounds alias chains; longer chains are treated as cycles.
const DefaultMaxAliasHops = 32

type aliasEntry struct {
	target  string
	private bool
}

// aliasTable maps secondary names to canonical keys. It is read-only after
// compilation.
type aliasTable struct {
	entries map[string]aliasEntry
	maxHops int
}

func newAliasTable(maxHops int) *aliasTable {
	if maxHops <= 0 {
		maxHops = DefaultMaxAliasHops
	}
	return &aliasTable{entries: make(map[string]aliasEntry), maxHops: maxHops}
}

func (t *aliasTable) isAlias(key string) bool {
	_, ok := t.entries[key]
	return ok
}

func (t *aliasTable) isPrivate(key string) bool {
	return t.entries[key].private
}

// resolve follows alias hops from key to its canonical key.
func (t *aliasTable) resolve(key string) (string, error) {
	cur := key
	seen := []string{key}
	for hops := 0; ; hops++ {
		e, ok := t.entries[cur]
		if !ok {
			return cur, nil
		}
		if hops >= t.maxHops || contains(seen, e.target) {
			return "", newServiceError("resolve", key, ErrCircularReference).
				withChain(append(seen, e.target))
		}
		seen = append(seen, e.target)
		cur = e.target
	}
}

// aliasesOf lists every alias whose chain ends at target.
func (t *aliasTable) aliasesOf(target string) []string {
	var out []string
	for alias := range t.entries {
		if canonical, err := t.resolve(alias); err == nil && canonical == target {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

func (t *aliasTable) snapshot() map[string]string {
	out := make(map[string]string, len(t.entries))
	for alias, e := range t.entries {
		out[alias] = e.target
	}
	return out
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
