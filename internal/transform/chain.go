package transform

import (
	"sort"

	"github.com/krishnapaul242/gati-sub004"
)

// BuildChain returns the linear sequence of RIDs to visit moving from
// `from` to `to` within versions (spec §4.2 "build-chain"). versions is
// sorted ascending by embedded timestamp internally; the caller does not
// need to pre-sort. Returns a nil chain and a nil error if either
// endpoint is missing from versions (or from == to), and ErrChainTooLong
// if the resulting chain would exceed the configured maximum.
func (e *Engine) BuildChain(from, to timescape.RID, versions []timescape.RID) ([]timescape.RID, error) {
	sorted := sortByTimestamp(versions)

	i := indexOf(sorted, from)
	j := indexOf(sorted, to)
	if i < 0 || j < 0 {
		return nil, nil // "no chain" per spec; caller distinguishes via len(chain)==0 && error==nil
	}

	var chain []timescape.RID
	switch {
	case i == j:
		chain = nil
	case i < j:
		chain = append(chain, sorted[i:j+1]...)
	default:
		for k := i; k >= j; k-- {
			chain = append(chain, sorted[k])
		}
	}

	if len(chain) > 0 && len(chain)-1 > e.maxChainLength {
		return nil, ErrChainTooLong
	}
	return chain, nil
}

func sortByTimestamp(versions []timescape.RID) []timescape.RID {
	out := make([]timescape.RID, len(versions))
	copy(out, versions)
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := out[i].Timestamp()
		tj, _ := out[j].Timestamp()
		return ti < tj
	})
	return out
}

func indexOf(versions []timescape.RID, target timescape.RID) int {
	for i, v := range versions {
		if v == target {
			return i
		}
	}
	return -1
}
