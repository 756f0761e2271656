package library_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/library"
	"bookshelf/internal/pubsub"
	"bookshelf/internal/storage"
	"bookshelf/internal/types"
)

func setup(t *testing.T) *storage.Storage {
	st, err := storage.Open(context.Background(), "sqlite://:memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	return st
}

func TestAddBook(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes a snapshot", func(t *testing.T) {
		st := setup(t)
		bus := pubsub.New[types.BookAdded](4, slog.Default())
		lib := &library.Library{Authors: st.Authors, Books: st.Books, Events: bus}

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		events := bus.Subscribe(subCtx, types.TopicBookAdded)

		book, author, err := lib.AddBook(ctx, library.NewBook{Title: "Refactoring", Author: "Martin Fowler"})
		require.NoError(t, err)
		assert.Equal(t, []string{}, book.Genres)
		assert.Equal(t, []string{book.Id}, author.Books)

		select {
		case e := <-events:
			assert.Equal(t, book.Id, e.Book.Id)
			assert.Equal(t, "Martin Fowler", e.Author.Name)
			assert.Equal(t, []string{book.Id}, e.Author.Books)
		case <-time.After(time.Second):
			require.FailNow(t, "no event")
		}
	})

	t.Run("works without events", func(t *testing.T) {
		st := setup(t)
		lib := &library.Library{Authors: st.Authors, Books: st.Books}

		_, first, err := lib.AddBook(ctx, library.NewBook{Title: "Refactoring", Author: "Martin Fowler"})
		require.NoError(t, err)
		_, second, err := lib.AddBook(ctx, library.NewBook{Title: "Analysis Patterns", Author: "Martin Fowler"})
		require.NoError(t, err)

		assert.Equal(t, first.Id, second.Id)
		assert.Len(t, second.Books, 2)
	})

	t.Run("invalid book leaves created author", func(t *testing.T) {
		st := setup(t)
		lib := &library.Library{Authors: st.Authors, Books: st.Books}

		_, _, err := lib.AddBook(ctx, library.NewBook{Title: "", Author: "Martin Fowler"})
		require.ErrorIs(t, err, types.ErrInvalid)

		n, err := st.Books.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestHasBook(t *testing.T) {
	ctx := context.Background()
	st := setup(t)
	lib := &library.Library{Authors: st.Authors, Books: st.Books}

	_, _, err := lib.AddBook(ctx, library.NewBook{Title: "Demons", Author: "Fyodor Dostoevsky"})
	require.NoError(t, err)

	for _, tc := range []struct {
		title, author string
		want          bool
	}{
		{"Demons", "Fyodor Dostoevsky", true},
		{"demons", "Fyodor Dostoevsky", false},
		{"Demons", "Martin Fowler", false},
	} {
		got, err := lib.HasBook(ctx, tc.title, tc.author)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s by %s", tc.title, tc.author)
	}
}
