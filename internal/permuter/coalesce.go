package permuter

import "github.com/harshanavkis/crashmonkey/internal/model"

// CoalesceSectors keeps, for each disk offset, only the latest sector in
// input order: a later sector write fully supersedes any earlier write at
// the same offset for crash-state replay. The relative order of the kept
// sectors is preserved.
func CoalesceSectors(sectors []model.EpochOpSector) []model.EpochOpSector {
	res := make([]model.EpochOpSector, 0, len(sectors))
	seen := make(map[uint64]struct{}, len(sectors))

	// Walk backwards so the last writer at each offset wins.
	for i := len(sectors) - 1; i >= 0; i-- {
		if _, ok := seen[sectors[i].DiskOffset]; ok {
			continue
		}
		seen[sectors[i].DiskOffset] = struct{}{}
		res = append(res, sectors[i])
	}

	for l, r := 0, len(res)-1; l < r; l, r = l+1, r-1 {
		res[l], res[r] = res[r], res[l]
	}
	return res
}
