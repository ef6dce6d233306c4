package fetch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fwojciec/wikifetch"
)

// Resolver defaults.
const (
	DefaultSuffix      = "(footballer)"
	DefaultQualifier   = "footballer"
	DefaultSearchLimit = 3
)

var _ wikifetch.Resolver = (*Resolver)(nil)

// Resolver finds the article for a work item by trying, in order, the
// authoritative cross-reference, variations of the display name, and a
// verified keyword search. The first document whose body reaches
// MinBodyLength wins.
type Resolver struct {
	Lookup wikifetch.Lookup

	// Suffix is appended to the display name to form a disambiguated title.
	Suffix string
	// Qualifier is appended to the display name to form the search query.
	Qualifier string
	// MinBodyLength rejects disambiguation pages and stubs.
	MinBodyLength int
	// SearchLimit bounds how many search candidates are checked.
	SearchLimit int

	Logger *slog.Logger
	Now    func() time.Time
}

// NewResolver returns a Resolver with default settings.
func NewResolver(lookup wikifetch.Lookup) *Resolver {
	return &Resolver{
		Lookup:        lookup,
		Suffix:        DefaultSuffix,
		Qualifier:     DefaultQualifier,
		MinBodyLength: wikifetch.DefaultMinBodyLength,
		SearchLimit:   DefaultSearchLimit,
		Logger:        slog.New(slog.DiscardHandler),
		Now:           time.Now,
	}
}

// attempts records every title tried for one item, in order, and the
// titles whose lookup failed for a reason other than a missing article.
type attempts struct {
	titles []string
	seen   map[string]bool
	failed map[string]bool
}

// add records title and reports whether it was new.
func (a *attempts) add(title string) bool {
	if title == "" || a.seen[title] {
		return false
	}
	a.seen[title] = true
	a.titles = append(a.titles, title)
	return true
}

// retry reports whether title is new or was tried and failed transiently.
// A retried title is recorded only once.
func (a *attempts) retry(title string) bool {
	if a.failed[title] {
		delete(a.failed, title)
		return true
	}
	return a.add(title)
}

// Resolve implements wikifetch.Resolver.
func (r *Resolver) Resolve(ctx context.Context, item *wikifetch.WorkItem) *wikifetch.FetchResult {
	tried := &attempts{seen: make(map[string]bool), failed: make(map[string]bool)}

	doc := r.byAuthoritativeTitle(ctx, item, tried)
	if doc == nil {
		doc = r.byVariations(ctx, item, tried)
	}
	if doc == nil {
		doc = r.bySearch(ctx, item, tried)
	}

	result := &wikifetch.FetchResult{
		Key:             item.Key,
		DisplayName:     item.DisplayName,
		Status:          wikifetch.StatusNotFound,
		AttemptedTitles: tried.titles,
		FetchedAt:       r.now(),
	}
	if result.AttemptedTitles == nil {
		result.AttemptedTitles = []string{}
	}
	if doc != nil {
		result.Status = wikifetch.StatusFound
		result.Document = doc
	}
	return result
}

func (r *Resolver) byAuthoritativeTitle(ctx context.Context, item *wikifetch.WorkItem, tried *attempts) *wikifetch.Document {
	title, err := r.Lookup.AuthoritativeTitle(ctx, item.Key)
	if err != nil {
		if wikifetch.ErrorCode(err) != wikifetch.ENOTFOUND {
			r.logger().Debug("authoritative title failed", "key", item.Key, "err", err)
		}
		return nil
	}
	if !tried.add(title) {
		return nil
	}

	doc, err := r.Lookup.Lookup(ctx, title)
	if err != nil {
		if wikifetch.ErrorCode(err) != wikifetch.ENOTFOUND {
			tried.failed[title] = true
		}
		r.logger().Debug("lookup failed", "key", item.Key, "title", title, "err", err)
		return nil
	}
	if !doc.Qualifies(r.minBodyLength()) {
		return nil
	}
	return doc
}

func (r *Resolver) byVariations(ctx context.Context, item *wikifetch.WorkItem, tried *attempts) *wikifetch.Document {
	var titles []string
	for _, title := range Variations(item.DisplayName, r.suffix()) {
		if tried.retry(title) {
			titles = append(titles, title)
		}
	}

	docs := r.batchLookup(ctx, item.Key, titles)
	for _, title := range titles {
		if doc := docs[title]; doc.Qualifies(r.minBodyLength()) {
			return doc
		}
	}
	return nil
}

func (r *Resolver) bySearch(ctx context.Context, item *wikifetch.WorkItem, tried *attempts) *wikifetch.Document {
	limit := r.searchLimit()
	query := strings.TrimSpace(item.DisplayName + " " + r.qualifier())

	found, err := r.Lookup.Search(ctx, query, limit)
	if err != nil {
		r.logger().Debug("search failed", "key", item.Key, "query", query, "err", err)
		return nil
	}

	var titles []string
	for _, title := range found {
		if len(titles) >= limit {
			break
		}
		if tried.add(title) {
			titles = append(titles, title)
		}
	}

	tokens := NameTokens(item.DisplayName)
	docs := r.batchLookup(ctx, item.Key, titles)
	for _, title := range titles {
		doc := docs[title]
		if !doc.Qualifies(r.minBodyLength()) {
			continue
		}
		if MentionsAny(doc.Body, tokens) {
			return doc
		}
	}
	return nil
}

// batchLookup fetches titles in batches of at most wikifetch.MaxBatchTitles.
// A failed batch contributes no documents.
func (r *Resolver) batchLookup(ctx context.Context, key string, titles []string) map[string]*wikifetch.Document {
	docs := make(map[string]*wikifetch.Document, len(titles))
	for start := 0; start < len(titles); start += wikifetch.MaxBatchTitles {
		end := min(start+wikifetch.MaxBatchTitles, len(titles))
		batch, err := r.Lookup.BatchLookup(ctx, titles[start:end])
		if err != nil {
			r.logger().Debug("batch lookup failed", "key", key, "titles", titles[start:end], "err", err)
			continue
		}
		for title, doc := range batch {
			docs[title] = doc
		}
	}
	return docs
}

func (r *Resolver) suffix() string {
	if r.Suffix == "" {
		return DefaultSuffix
	}
	return r.Suffix
}

func (r *Resolver) qualifier() string {
	if r.Qualifier == "" {
		return DefaultQualifier
	}
	return r.Qualifier
}

func (r *Resolver) minBodyLength() int {
	if r.MinBodyLength <= 0 {
		return wikifetch.DefaultMinBodyLength
	}
	return r.MinBodyLength
}

func (r *Resolver) searchLimit() int {
	if r.SearchLimit <= 0 {
		return DefaultSearchLimit
	}
	return r.SearchLimit
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

// Variations returns the ordered, deduplicated candidate titles for a
// display name: the name itself, the name with suffix, and the name with
// spaces replaced by underscores.
func Variations(name, suffix string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	candidates := []string{name}
	if suffix != "" {
		candidates = append(candidates, name+" "+suffix)
	}
	candidates = append(candidates, strings.ReplaceAll(name, " ", "_"))

	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// NameTokens returns the lower-cased words of name longer than two
// characters.
func NameTokens(name string) []string {
	var tokens []string
	for _, f := range strings.Fields(strings.ToLower(name)) {
		if len([]rune(f)) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// MentionsAny reports whether body contains any of the lower-cased tokens,
// ignoring case.
func MentionsAny(body string, tokens []string) bool {
	lower := strings.ToLower(body)
	for _, token := range tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
