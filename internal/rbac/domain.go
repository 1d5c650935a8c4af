package rbac

import (
	"context"
	"sort"
	"strings"
)

// Wildcard grants every permission.
const Wildcard = "*"

// Authorizer answers whether an actor holds a named permission. Callers check
// before a mutating request reaches the ledger; the ledger itself trusts them.
type Authorizer interface {
	Granted(ctx context.Context, actor, permission string) (bool, error)
}

// StaticGrants is an in-process grant table loaded from configuration.
type StaticGrants struct {
	grants map[string]map[string]struct{}
}

// NewStaticGrants builds a table from actor -> "perm|perm" entries. A "*"
// entry grants everything.
func NewStaticGrants(raw map[string]string) *StaticGrants {
	grants := make(map[string]map[string]struct{}, len(raw))
	for actor, list := range raw {
		actor = strings.TrimSpace(actor)
		if actor == "" {
			continue
		}
		set := grants[actor]
		if set == nil {
			set = make(map[string]struct{})
			grants[actor] = set
		}
		for _, perm := range normalizePermissions(strings.Split(list, "|")) {
			set[perm] = struct{}{}
		}
	}
	return &StaticGrants{grants: grants}
}

// Granted implements Authorizer.
func (s *StaticGrants) Granted(_ context.Context, actor, permission string) (bool, error) {
	if s == nil {
		return false, nil
	}
	set, ok := s.grants[actor]
	if !ok {
		return false, nil
	}
	if _, ok := set[Wildcard]; ok {
		return true, nil
	}
	_, ok = set[strings.ToLower(strings.TrimSpace(permission))]
	return ok, nil
}

// EffectivePermissions lists what actor holds, sorted.
func (s *StaticGrants) EffectivePermissions(_ context.Context, actor string) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	set := s.grants[actor]
	out := make([]string, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out, nil
}
