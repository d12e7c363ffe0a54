package dust

import "github.com/chengchen0102/dustpy/internal/grid"

// SourceRow applies the rate tensor at radius r to the dust mass-bin row y
// (surface densities, length Nm) and accumulates the Smoluchowski net rate of
// change into out. Symmetric pairs are counted once; identical-bin collisions
// carry the 1/2 self-collision factor. Empty bins contribute zero without
// division hazards because the pair list already excludes them.
func (t *RateTensor) SourceRow(mg *grid.Mass, r int, y, out []float64) {
	for i := range out {
		out[i] = 0
	}
	for _, pr := range t.Pairs[r] {
		ni := y[pr.I] / mg.M[pr.I]
		nj := y[pr.J] / mg.M[pr.J]
		if ni <= 0 || nj <= 0 {
			continue
		}

		coll := pr.Rate * ni * nj
		if pr.I == pr.J {
			coll *= 0.5
		}

		mi, mj := mg.M[pr.I], mg.M[pr.J]
		mtot := mi + mj
		out[pr.I] -= coll * mi
		out[pr.J] -= coll * mj
		for _, oc := range pr.Outcomes {
			gain := coll * oc.Prob * mtot
			for _, ch := range oc.Channels {
				out[ch.Bin] += gain * ch.Frac
			}
		}
	}
}
