package input

import (
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/fileutil"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; scrollystory/1.0; +https://github.com/kris-hansen/scrollystory)"
	fetchTimeout = 60 * time.Second
)

// Fetcher downloads remote datasets
type Fetcher struct {
	headers map[string]string
	limit   int64
}

// NewFetcher creates a fetcher bounded by fileutil.MaxFileSize
func NewFetcher() *Fetcher {
	return &Fetcher{
		headers: make(map[string]string),
		limit:   fileutil.MaxFileSize,
	}
}

// SetCustomHeaders sets headers sent with every request, such as an Authorization header
func (f *Fetcher) SetCustomHeaders(headers map[string]string) {
	for key, value := range headers {
		f.headers[key] = value
	}
}

// Fetch downloads url and returns the raw body
func (f *Fetcher) Fetch(url string) ([]byte, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(userAgent),
		colly.MaxBodySize(int(f.limit)+1),
	)
	c.SetRequestTimeout(fetchTimeout)

	var (
		body     []byte
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		for key, value := range f.headers {
			r.Headers.Set(key, value)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		config.DebugLog("Fetched %s: status %d, %d bytes, content type %q",
			url, r.StatusCode, len(r.Body), r.Headers.Get("Content-Type"))
		body = r.Body
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("error fetching %s: status %d: %w", url, r.StatusCode, err)
			return
		}
		fetchErr = fmt.Errorf("error fetching %s: %w", url, err)
	})

	config.VerboseLog("Fetching %s", url)
	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("error fetching %s: %w", url, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if int64(len(body)) > f.limit {
		return nil, fmt.Errorf("response from %s exceeds maximum allowed size of %d bytes", url, f.limit)
	}
	return body, nil
}
