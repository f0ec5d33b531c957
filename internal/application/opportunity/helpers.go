package opportunity

import (
	"errors"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/yoma-opportunity/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// distinct drops repeated values keeping first-seen order. A non-nil input
// always yields a non-nil result.
func distinct(values []string) []string {
	if values == nil {
		return nil
	}
	set := linkedhashset.New()
	for _, v := range values {
		set.Add(v)
	}
	out := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		out = append(out, v.(string))
	}
	return out
}

func lookupIDs(items []domain.Lookup) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, l := range items {
		out[i] = l.ID
	}
	return out
}

func boolPtr(v bool) *bool { return &v }
