package registry

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ordered runs work over items on at most window goroutines and hands
// each result to consume on the calling goroutine, in item order.
//
// A slot is released only after consume returns, so no more than window
// results exist at once, counting those parked behind a slower earlier
// item.
func ordered[In, Out any](ctx context.Context, window int, items []In, work func(In) Out, consume func(In, Out)) error {
	if window < 1 {
		window = 1
	}
	type result struct {
		i   int
		out Out
	}
	slots := make(chan struct{}, window)
	// At most window results are outstanding, so sends never block.
	done := make(chan result, window)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i, item := range items {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			g.Go(func() error {
				done <- result{i: i, out: work(item)}
				return nil
			})
		}
		return nil
	})

	pending := make(map[int]Out, window)
	for next := 0; next < len(items); {
		if gctx.Err() != nil {
			break
		}
		select {
		case r := <-done:
			pending[r.i] = r.out
		case <-gctx.Done():
		}
		for {
			out, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			consume(items[next], out)
			next++
			<-slots
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
