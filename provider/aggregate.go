package provider

import "context"

// broadcast puts item on the inbound queue of every hook wired at this
// moment and returns that snapshot. A hook attached afterwards neither
// receives item nor takes part in collecting its results.
func (b *base) broadcast(item any) []queuePair {
	b.mu.Lock()
	defer b.mu.Unlock()

	pairs := append([]queuePair(nil), b.pairs...)
	for _, p := range pairs {
		p.inbound.Put(item)
	}
	return pairs
}

// collect waits for exactly one result from every pair. results[i] is always
// the output of pairs[i], whatever order the hooks finish in.
func collect(ctx context.Context, pairs []queuePair) ([]any, error) {
	results := make([]any, len(pairs))
	for i, p := range pairs {
		result, err := p.outbound.Get(ctx)
		if err != nil {
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}

func drain(pairs []queuePair) {
	for _, p := range pairs {
		p.outbound.Drain()
	}
}
