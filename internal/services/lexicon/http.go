package lexicon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a dictionary response is read
const maxResponseBytes = 1 << 20

// HTTPGateway looks words up in a remote dictionary service that answers
// GET {base}/{word} with a JSON array of entries and 404 for unknown words.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGateway creates a gateway for the dictionary service at baseURL
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type remoteEntry struct {
	Word      string `json:"word"`
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text string `json:"text"`
	} `json:"phonetics"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// Lookup implements Gateway
func (g *HTTPGateway) Lookup(ctx context.Context, word string) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+url.PathEscape(word), nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return Entry{Found: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("dictionary service returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return Entry{}, fmt.Errorf("dictionary response exceeds %d bytes", maxResponseBytes)
	}
	var entries []remoteEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(entries) == 0 {
		return Entry{Found: false}, nil
	}

	return toEntry(entries[0]), nil
}

func toEntry(remote remoteEntry) Entry {
	entry := Entry{Found: true, Phonetics: remote.Phonetic}
	if entry.Phonetics == "" {
		for _, p := range remote.Phonetics {
			if p.Text != "" {
				entry.Phonetics = p.Text
				break
			}
		}
	}
	for _, meaning := range remote.Meanings {
		pos := strings.ToLower(strings.TrimSpace(meaning.PartOfSpeech))
		if pos != "" && !slices.Contains(entry.PartsOfSpeech, pos) {
			entry.PartsOfSpeech = append(entry.PartsOfSpeech, pos)
		}
		if entry.PartOfSpeech == "" {
			entry.PartOfSpeech = pos
		}
		for _, d := range meaning.Definitions {
			entry.Definitions = append(entry.Definitions, d.Definition)
		}
	}
	return entry
}
