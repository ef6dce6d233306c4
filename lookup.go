package wikifetch

import "context"

// MaxBatchTitles is the largest number of titles a single BatchLookup accepts.
const MaxBatchTitles = 50

// Lookup retrieves articles from the remote encyclopedia.
// Implementations own transport concerns: timeouts, retries of transient
// failures and request spacing.
type Lookup interface {
	// Lookup fetches the article with the exact title.
	// Returns ENOTFOUND if no such article exists.
	Lookup(ctx context.Context, title string) (*Document, error)

	// BatchLookup fetches up to MaxBatchTitles articles in one request.
	// The result is keyed by the requested title; missing titles are absent.
	BatchLookup(ctx context.Context, titles []string) (map[string]*Document, error)

	// Search returns up to limit candidate titles for query, best first.
	Search(ctx context.Context, query string, limit int) ([]string, error)

	// AuthoritativeTitle maps an entity key to its article title through the
	// knowledge base's cross-reference.
	// Returns ENOTFOUND if the entity has no linked article.
	AuthoritativeTitle(ctx context.Context, key string) (string, error)

	// Close releases transport resources.
	Close() error
}

// Resolver turns a work item into a fetch result.
type Resolver interface {
	// Resolve never fails: every lookup failure is recorded as an attempted
	// title that did not work.
	Resolve(ctx context.Context, item *WorkItem) *FetchResult
}
