package coverage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-sif/xmatch"
)

// Remote produces a Coverage which loads the MOC footprint at url through cache on Init
func Remote(url string, cache *FootprintCache, fetch Fetcher, tiler Tiler) *LazyCoverage {
	return Lazy(url, func(ctx context.Context) (xmatch.Coverage, error) {
		moc, err := cache.Get(ctx, url, fetch)
		if err != nil {
			return nil, err
		}
		return NewMOC(moc, tiler), nil
	})
}

// HTTPFetch produces a Fetcher which retrieves footprints with an HTTP GET. A nil client means http.DefaultClient.
func HTTPFetch(client *http.Client) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, url string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("Unexpected status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
}
