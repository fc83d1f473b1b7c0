package aggregate

import (
	"sort"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// TopN ranks a snapshot by ratio descending and keeps the first n.
// Ties keep first-appearance order and non-finite ratios rank last.
// n larger than the snapshot returns everything; n <= 0 returns nothing.
func TopN(snap *contracts.Snapshot, n int) []contracts.RankedEntity {
	if n <= 0 || snap.Len() == 0 {
		return []contracts.RankedEntity{}
	}

	records := snap.Records()
	sort.SliceStable(records, func(i, j int) bool {
		fi, fj := records[i].Finite(), records[j].Finite()
		if fi != fj {
			return fi
		}
		if !fi {
			return false
		}
		return records[i].Ratio > records[j].Ratio
	})

	if n > len(records) {
		n = len(records)
	}

	ranked := make([]contracts.RankedEntity, n)
	for i := 0; i < n; i++ {
		ranked[i] = contracts.RankedEntity{Rank: i + 1, Latest: records[i]}
	}
	return ranked
}

// Entities returns the entity ids of a ranking in rank order
func Entities(ranked []contracts.RankedEntity) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Entity
	}
	return out
}
