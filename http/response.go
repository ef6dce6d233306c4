package http

import (
	"strconv"
	"time"

	"github.com/fwojciec/wikifetch"
)

// apiError is the error object the MediaWiki APIs return with HTTP 200.
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) asError() error {
	return wikifetch.Errorf(wikifetch.EINVALID, "api error %s: %s", e.Code, e.Info)
}

type queryResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Normalized []titleMapping `json:"normalized"`
		Redirects  []titleMapping `json:"redirects"`
		Pages      []page         `json:"pages"`
	} `json:"query"`
}

type titleMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type page struct {
	PageID    int    `json:"pageid"`
	Title     string `json:"title"`
	Missing   bool   `json:"missing"`
	Invalid   bool   `json:"invalid"`
	FullURL   string `json:"fullurl"`
	Extract   string `json:"extract"`
	Revisions []struct {
		Timestamp string `json:"timestamp"`
	} `json:"revisions"`
}

func (p page) document(fetchedAt time.Time) *wikifetch.Document {
	doc := &wikifetch.Document{
		SourceID:    strconv.Itoa(p.PageID),
		Title:       p.Title,
		URL:         p.FullURL,
		Body:        p.Extract,
		ContentHash: wikifetch.HashContent(p.Extract),
		FetchedAt:   fetchedAt,
	}
	if len(p.Revisions) > 0 {
		doc.Revision = p.Revisions[0].Timestamp
	}
	return doc
}

type searchResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type entitiesResponse struct {
	Error    *apiError `json:"error"`
	Entities map[string]struct {
		Missing   *string `json:"missing"`
		Sitelinks map[string]struct {
			Title string `json:"title"`
		} `json:"sitelinks"`
	} `json:"entities"`
}
