package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/usamitakanari/discord-bot/internal/domain"
	"github.com/usamitakanari/discord-bot/internal/infra/metrics"
)

// ErrHeaderNotFound is returned when no row contains the marker column.
var ErrHeaderNotFound = errors.New("header row not found in export")

const fetchTimeout = 30 * time.Second

// ExportURL builds the CSV export URL for a published spreadsheet tab.
func ExportURL(sheetID, gid string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", sheetID, gid)
}

// Client fetches CSV exports over HTTP.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client with a bounded request timeout.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: fetchTimeout}}
}

// FetchCSV downloads and decodes the export at url into raw rows.
func (c *Client) FetchCSV(ctx context.Context, url string) ([][]string, error) {
	start := time.Now()
	rows, err := c.fetchCSV(ctx, url)
	metrics.ObserveNetworkRequest("sheets", "fetch_csv", start, err)
	return rows, err
}

func (c *Client) fetchCSV(ctx context.Context, url string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch export: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch export: unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	}
	return rows, nil
}

// SnapshotFetcher turns a CSV export into a domain.Snapshot by locating the
// header row via a marker column and dropping everything above it.
type SnapshotFetcher struct {
	client *Client
	url    string
	marker string
}

var _ domain.SnapshotFetcher = (*SnapshotFetcher)(nil)

// NewSnapshotFetcher creates a fetcher for the given export URL.
func NewSnapshotFetcher(client *Client, url, marker string) *SnapshotFetcher {
	return &SnapshotFetcher{client: client, url: url, marker: marker}
}

// Fetch retrieves the export and splits it into header and data rows.
func (f *SnapshotFetcher) Fetch(ctx context.Context) (domain.Snapshot, error) {
	rows, err := f.client.FetchCSV(ctx, f.url)
	if err != nil {
		return domain.Snapshot{}, err
	}
	for i, row := range rows {
		for _, cell := range row {
			if cell == f.marker {
				return domain.Snapshot{Header: row, Rows: rows[i+1:]}, nil
			}
		}
	}
	return domain.Snapshot{}, ErrHeaderNotFound
}
