// Package sidra queries the IBGE SIDRA aggregates API for census
// tabulations at the municipality level.
package sidra

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/fetcher"
)

// Options configures a SIDRA client. Table 9605 is the 2022 census
// "População residente, por cor ou raça" tabulation; variable 93 is the
// resident population count.
type Options struct {
	BaseURL  string
	Table    int
	Variable int
	Period   string
}

// Client fetches and parses SIDRA value responses.
type Client struct {
	f    fetcher.Fetcher
	opts Options
}

// NewClient creates a SIDRA client over the given fetcher.
func NewClient(f fetcher.Fetcher, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://apisidra.ibge.gov.br"
	}
	return &Client{f: f, opts: opts}
}

// ValuesURL builds the /values query: all municipalities (n6), the
// configured variable and period, every cor/raça class (c86) including the
// Total row.
func (c *Client) ValuesURL() string {
	return fmt.Sprintf("%s/values/t/%d/n6/all/v/%d/p/%s/c86/all",
		c.opts.BaseURL, c.opts.Table, c.opts.Variable, c.opts.Period)
}

// Fetch downloads and parses the full observation set.
func (c *Client) Fetch(ctx context.Context) ([]census.Observation, error) {
	url := c.ValuesURL()
	zap.L().Info("sidra: fetching values", zap.String("url", url))

	body, err := c.f.Download(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "sidra: download values")
	}
	defer body.Close() //nolint:errcheck

	return ParseValues(ctx, body)
}

// FetchIfChanged downloads and parses observations only when the server
// reports a new ETag. Returns (nil, etag, false, nil) when unchanged.
func (c *Client) FetchIfChanged(ctx context.Context, etag string) ([]census.Observation, string, bool, error) {
	body, newETag, changed, err := c.f.DownloadIfChanged(ctx, c.ValuesURL(), etag)
	if err != nil {
		return nil, "", false, eris.Wrap(err, "sidra: conditional download")
	}
	if !changed {
		return nil, newETag, false, nil
	}
	defer body.Close() //nolint:errcheck

	obs, err := ParseValues(ctx, body)
	if err != nil {
		return nil, "", false, err
	}
	return obs, newETag, true, nil
}
