// Package importer loads books from OPDS 1 acquisition feeds into the library
package importer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/opds-community/libopds2-go/opds1"

	"bookshelf/internal/library"
	"bookshelf/internal/types"
)

const linkRelNext = "next"

var regYear = regexp.MustCompile(`^\d{1,4}`)

type Library interface {
	AddBook(ctx context.Context, nb library.NewBook) (*types.Book, *types.Author, error)
	HasBook(ctx context.Context, title, authorName string) (bool, error)
}

type Stats struct {
	Pages    int
	Imported int
	Existing int
	Skipped  int
}

type Importer struct {
	Client  *http.Client
	Logger  *slog.Logger
	Library Library
	// MaxPages bounds how many "next" links are followed, zero means no bound
	MaxPages int
}

// Import walks feed and every page reachable through "next" links. Books already present
// under the same author and title are left alone, so repeated imports are idempotent. Entries
// rejected by validation are skipped, any other storage error aborts the import.
func (im *Importer) Import(ctx context.Context, feed *url.URL) (Stats, error) {
	var stats Stats
	visited := make(map[string]struct{})

	for page := feed; page != nil; {
		if _, ok := visited[page.String()]; ok {
			im.Logger.Warn("Feed pages form a loop, stopping at " + page.String())
			break
		}
		visited[page.String()] = struct{}{}

		if im.MaxPages > 0 && stats.Pages >= im.MaxPages {
			im.Logger.Info("Reached page limit", slog.Int("pages", stats.Pages))
			break
		}

		f, err := im.fetch(ctx, page)
		if err != nil {
			return stats, err
		}
		stats.Pages++

		l := im.Logger.With(slog.String("feed", page.Path))
		for _, entry := range f.Entries {
			if err := im.entry(ctx, l, &entry, &stats); err != nil {
				return stats, err
			}
		}

		page = nextPage(page, f, l)
	}

	return stats, nil
}

func (im *Importer) fetch(ctx context.Context, page *url.URL) (*opds1.Feed, error) {
	im.Logger.Debug("Begin processing feed " + page.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.String(), nil)
	if err != nil {
		return nil, err
	}

	res, err := im.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", page, err)
	}

	var bs []byte
	func() {
		defer res.Body.Close()
		bs, err = io.ReadAll(res.Body)
	}()

	if err != nil {
		return nil, fmt.Errorf("fetching feed %s (reading response): %w", page, err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching feed %s: unexpected status %s", page, res.Status)
	}

	var feed opds1.Feed
	if err := xml.Unmarshal(removeDisallowedCodepoints(bs, im.Logger), &feed); err != nil {
		return nil, fmt.Errorf("unmarshalling feed %s: %w", page, err)
	}

	return &feed, nil
}

func (im *Importer) entry(ctx context.Context, l *slog.Logger, entry *opds1.Entry, stats *Stats) error {
	l = l.With(slog.String("entry", strings.TrimSpace(entry.ID)))

	nb := library.NewBook{
		Title:  strings.TrimSpace(entry.Title),
		Genres: genres(entry),
	}

	for _, a := range entry.Author {
		if name := strings.TrimSpace(a.Name); name != "" {
			nb.Author = name
			break
		}
	}

	if nb.Author == "" {
		l.Warn("Skip entry without author")
		stats.Skipped++
		return nil
	}

	if issued := regYear.FindString(strings.TrimSpace(entry.Issued)); issued != "" {
		y, err := strconv.ParseInt(issued, 10, 32)
		if err == nil {
			year := int32(y)
			nb.Published = &year
		}
	}

	exists, err := im.Library.HasBook(ctx, nb.Title, nb.Author)
	if err != nil {
		return fmt.Errorf("checking book %q: %w", nb.Title, err)
	}
	if exists {
		l.Debug("Book already present")
		stats.Existing++
		return nil
	}

	if _, _, err := im.Library.AddBook(ctx, nb); err != nil {
		if isRejected(err) {
			l.Warn("Skip invalid entry: " + err.Error())
			stats.Skipped++
			return nil
		}
		return fmt.Errorf("storing book %q: %w", nb.Title, err)
	}

	l.Info("Imported book", slog.String("title", nb.Title), slog.String("author", nb.Author))
	stats.Imported++
	return nil
}

// genres takes category terms in order, dropping case-insensitive duplicates
func genres(entry *opds1.Entry) []string {
	ret := make([]string, 0, len(entry.Category))
	seen := make(map[string]struct{}, len(entry.Category))

	for _, cat := range entry.Category {
		genre := strings.TrimSpace(cat.Term)
		if genre == "" {
			continue
		}

		if _, ok := seen[strings.ToLower(genre)]; ok {
			continue
		}
		seen[strings.ToLower(genre)] = struct{}{}

		ret = append(ret, genre)
	}

	return ret
}

func nextPage(page *url.URL, feed *opds1.Feed, l *slog.Logger) *url.URL {
	for _, link := range feed.Links {
		if strings.TrimSpace(link.Rel) != linkRelNext {
			continue
		}

		next, err := url.Parse(strings.TrimSpace(link.Href))
		if err != nil {
			l.Error("Failed to parse next page link: " + err.Error())
			return nil
		}

		return page.ResolveReference(next)
	}

	return nil
}

// Inspect each rune for being a disallowed character, some catalogs include those
func removeDisallowedCodepoints(bs []byte, l *slog.Logger) []byte {
	ret := make([]byte, 0, len(bs))
	buf := bs

	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size == 1 {
			l.Warn("Going to fail XML parsing because the bytes do not represent valid UTF8")
			return bs
		}

		if isInCharacterRange(r) {
			ret = append(ret, buf[:size]...)
		} else {
			l.Warn("Removed invalid rune from XML")
		}

		buf = buf[size:]
	}

	return ret
}

// Decide whether the given rune is in the XML Character Range, per
// the Char production of https://www.xml.com/axml/testaxml.htm,
// Section 2.2 Characters.
func isInCharacterRange(r rune) bool {
	return r == 0x09 ||
		r == 0x0A ||
		r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
