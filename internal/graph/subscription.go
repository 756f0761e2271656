package graph

import (
	"context"

	"bookshelf/internal/types"
)

// BookAdded streams books added after the call. The subscriber is registered before
// returning, so no book added later is missed. A client that falls a full queue behind has
// its stream closed and must subscribe again.
func (r *Resolver) BookAdded(ctx context.Context) <-chan *bookResolver {
	events := r.Events.Subscribe(ctx, types.TopicBookAdded)
	out := make(chan *bookResolver)

	go func() {
		defer close(out)

		for e := range events {
			select {
			case out <- &bookResolver{r: r, book: &e.Book, author: &e.Author}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
