package pipeline

import (
	"context"
)

// RunAll drives a full harvest: one discovery walk, then the three detail
// stages in order, looping until a pass makes no progress. Failed items do
// not block convergence; they stay failed until an operator intervenes.
func (p *Pipeline) RunAll(ctx context.Context, maxOffset int) (*Stats, error) {
	total := &Stats{}

	ds, err := p.RunDiscovery(ctx, maxOffset)
	total.Add(*ds)
	if err != nil {
		return total, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		progress := 0

		ov, err := p.RunOverviews(ctx, 0)
		total.Add(*ov)
		if err != nil {
			return total, err
		}
		progress += ov.Persisted + ov.Failed

		ms, err := p.RunMapStats(ctx, 0)
		total.Add(*ms)
		if err != nil {
			return total, err
		}
		progress += ms.Persisted

		pe, err := p.RunPerfEconomy(ctx, 0)
		total.Add(*pe)
		if err != nil {
			return total, err
		}
		progress += pe.Persisted

		if progress == 0 {
			return total, nil
		}
	}
}
