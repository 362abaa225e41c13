package campaign

import (
	"sort"
	"sync"
	"time"

	"wacampaign/internal/domain"
	"wacampaign/internal/util"
)

// RemoveDuplicateContacts keeps the first contact seen for each normalized
// phone, preserving order. Applying it twice yields the same list.
func RemoveDuplicateContacts(cs []domain.TestContact) []domain.TestContact {
	seen := make(map[string]struct{}, len(cs))
	out := make([]domain.TestContact, 0, len(cs))
	for _, c := range cs {
		key := util.NormalizePhone(c.Phone)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// OptOutRegistry records phones that must never receive campaign messages.
type OptOutRegistry struct {
	mu     sync.RWMutex
	phones map[string]time.Time
}

func NewOptOutRegistry(phones ...string) *OptOutRegistry {
	r := &OptOutRegistry{phones: make(map[string]time.Time)}
	for _, p := range phones {
		r.Add(p)
	}
	return r
}

func (r *OptOutRegistry) Add(phone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phones[util.NormalizePhone(phone)] = util.NowUTC()
}

func (r *OptOutRegistry) Remove(phone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.phones, util.NormalizePhone(phone))
}

func (r *OptOutRegistry) Contains(phone string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.phones[util.NormalizePhone(phone)]
	return ok
}

func (r *OptOutRegistry) Phones() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.phones))
	for p := range r.phones {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FilterOptedOut splits a batch before dispatch.
func FilterOptedOut(cs []domain.TestContact, reg *OptOutRegistry) (allowed, excluded []domain.TestContact) {
	for _, c := range cs {
		if reg != nil && reg.Contains(c.Phone) {
			excluded = append(excluded, c)
			continue
		}
		allowed = append(allowed, c)
	}
	return allowed, excluded
}
