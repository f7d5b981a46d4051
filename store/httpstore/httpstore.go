// Package httpstore is a Reader implementation that fetches the bulb list
// from an external HTTP admin API as a JSON array. It exists purely at
// the edge of the module — the admin CRUD surface itself is explicitly
// out of scope (§3 Non-goals) and lives in another service entirely.
//
// This is one of the few components in this module built directly on
// the standard library rather than a pack dependency: a single GET plus
// a JSON array decode is exactly what net/http and encoding/json already
// do, and no example repo in the pack reaches for an HTTP client library
// (resty, req, etc.) for anything beyond this — see DESIGN.md.
package httpstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pjlighting/artwiz-bridge/bulb"
)

// Reader fetches the bulb list from url via HTTP GET.
type Reader struct {
	URL    string
	Client *http.Client
}

// New creates a Reader with a sensible default client timeout.
func New(url string) *Reader {
	return &Reader{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// ReadAll implements store.Reader.
func (r *Reader) ReadAll(ctx context.Context) ([]bulb.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpstore: fetching %s: %w", r.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpstore: %s returned %s", r.URL, resp.Status)
	}

	var records []bulb.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("httpstore: decoding response: %w", err)
	}
	return records, nil
}
