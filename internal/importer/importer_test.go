package importer_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/importer"
	"bookshelf/internal/library"
	"bookshelf/internal/storage"
	"bookshelf/internal/storage/books"
)

const pageOne = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:dc="http://purl.org/dc/terms/">
  <id>tag:classics</id>
  <title>Classics</title>
  <link rel="next" href="/opds/classics?page=2" type="application/atom+xml;profile=opds-catalog"/>
  <entry>
    <id>tag:book:1</id>
    <title>Crime and punishment</title>
    <author><name>Fyodor Dostoevsky</name><uri>/a/1</uri></author>
    <category term="classic"/>
    <category term="crime"/>
    <category term="Classic"/>
    <dc:issued>1866</dc:issued>
  </entry>
  <entry>
    <id>tag:book:2</id>
    <title>Anonymous letters</title>
  </entry>
</feed>`

const pageTwo = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:dc="http://purl.org/dc/terms/">
  <id>tag:classics:2</id>
  <title>Classics</title>
  <link rel="next" href="/opds/classics" type="application/atom+xml;profile=opds-catalog"/>
  <entry>
    <id>tag:book:3</id>
    <title>Demons</title>
    <author><name> Fyodor Dostoevsky </name><uri>/a/1</uri></author>
    <category term="classic"/>
    <dc:issued>1872-01-01</dc:issued>
  </entry>
  <entry>
    <id>tag:book:4</id>
    <title> </title>
    <author><name>Fyodor Dostoevsky</name></author>
  </entry>
</feed>`

func setup(t *testing.T) (*storage.Storage, *url.URL) {
	ctx := context.Background()

	st, err := storage.Open(ctx, "sqlite://:memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(pageTwo))
			return
		}
		_, _ = w.Write([]byte(pageOne))
	}))
	t.Cleanup(srv.Close)

	feed, err := url.Parse(srv.URL + "/opds/classics")
	require.NoError(t, err)

	return st, feed
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	st, feed := setup(t)

	im := &importer.Importer{
		Client:  http.DefaultClient,
		Logger:  slog.Default(),
		Library: &library.Library{Authors: st.Authors, Books: st.Books},
	}

	stats, err := im.Import(ctx, feed)
	require.NoError(t, err)
	assert.Equal(t, importer.Stats{Pages: 2, Imported: 2, Skipped: 2}, stats)

	all, err := st.Books.Search(ctx, books.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "Crime and punishment", all[0].Title)
	assert.Equal(t, []string{"classic", "crime"}, all[0].Genres)
	require.NotNil(t, all[0].Published)
	assert.Equal(t, int32(1866), *all[0].Published)

	assert.Equal(t, "Demons", all[1].Title)
	assert.Equal(t, int32(1872), *all[1].Published)

	author, err := st.Authors.GetByName(ctx, "Fyodor Dostoevsky")
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, []string{all[0].Id, all[1].Id}, author.Books)

	n, err := st.Authors.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	t.Run("second run keeps existing books", func(t *testing.T) {
		stats, err := im.Import(ctx, feed)
		require.NoError(t, err)
		assert.Equal(t, importer.Stats{Pages: 2, Existing: 2, Skipped: 2}, stats)

		n, err := st.Books.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("page limit", func(t *testing.T) {
		limited := *im
		limited.MaxPages = 1

		stats, err := limited.Import(ctx, feed)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Pages)
	})
}

func TestImportFailures(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		st, _ := setup(t)
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		feed, err := url.Parse(srv.URL)
		require.NoError(t, err)

		im := &importer.Importer{
			Client:  http.DefaultClient,
			Logger:  slog.Default(),
			Library: &library.Library{Authors: st.Authors, Books: st.Books},
		}

		_, err = im.Import(context.Background(), feed)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status")
	})

	t.Run("storage failure aborts", func(t *testing.T) {
		st, feed := setup(t)
		require.NoError(t, st.Close())

		im := &importer.Importer{
			Client:  http.DefaultClient,
			Logger:  slog.Default(),
			Library: &library.Library{Authors: st.Authors, Books: st.Books},
		}

		stats, err := im.Import(context.Background(), feed)
		require.Error(t, err)
		assert.Zero(t, stats.Imported)
	})
}
