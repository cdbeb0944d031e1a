package pupil

import (
	"math"
	"sort"

	"pupil-overlay-go/internal/types"
)

// Recording is a timestamp-indexed set of datums rebuilt from a raw log.
// Load with Add, then Sort once before querying.
type Recording struct {
	p2s []types.Pupil2D
	p3s []types.Pupil3D
}

func (r *Recording) Add(p2 *types.Pupil2D, p3 *types.Pupil3D) {
	if p2 != nil {
		r.p2s = append(r.p2s, *p2)
	}
	if p3 != nil {
		r.p3s = append(r.p3s, *p3)
	}
}

func (r *Recording) Counts() (p2, p3 int) {
	return len(r.p2s), len(r.p3s)
}

func (r *Recording) Sort() {
	sort.Slice(r.p2s, func(i, j int) bool { return r.p2s[i].Timestamp < r.p2s[j].Timestamp })
	sort.Slice(r.p3s, func(i, j int) bool { return r.p3s[i].Timestamp < r.p3s[j].Timestamp })
}

// At returns the datums nearest ts, each within window seconds. A window
// of 0 or less accepts any distance. Requires a prior Sort.
func (r *Recording) At(ts, window float64) (*types.Pupil2D, *types.Pupil3D) {
	var p2 *types.Pupil2D
	var p3 *types.Pupil3D
	if i := nearest(len(r.p2s), func(k int) float64 { return r.p2s[k].Timestamp }, ts, window); i >= 0 {
		p2 = &r.p2s[i]
	}
	if i := nearest(len(r.p3s), func(k int) float64 { return r.p3s[k].Timestamp }, ts, window); i >= 0 {
		p3 = &r.p3s[i]
	}
	return p2, p3
}

func nearest(count int, tsAt func(int) float64, target, window float64) int {
	if count == 0 {
		return -1
	}
	i := sort.Search(count, func(k int) bool { return tsAt(k) >= target })
	best := -1
	if i < count {
		best = i
	}
	if i > 0 && (best < 0 || target-tsAt(i-1) <= tsAt(best)-target) {
		best = i - 1
	}
	if window > 0 && math.Abs(tsAt(best)-target) > window {
		return -1
	}
	return best
}
