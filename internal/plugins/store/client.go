package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/config"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/resilience"
	"github.com/loomworks/worldloom/backend/internal/plugins/manifest"
	"github.com/loomworks/worldloom/backend/internal/shared/errs"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// Client talks to the remote plugin catalog. Transport failures and
// non-2xx responses surface as a catalog-unavailable condition so
// callers never mistake an outage for a bad plugin.
type Client struct {
	resty     *resty.Client
	breaker   *resilience.Breaker
	validator *manifest.Validator
	log       *logging.Logger
}

// NewClient builds a catalog client with retries and a circuit breaker
func NewClient(cfg config.StoreConfig, validator *manifest.Validator, log *logging.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "WorldLoom-Backend/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	return &Client{
		resty:     restyClient,
		breaker:   resilience.NewBreaker("plugin-catalog", 5, cfg.Timeout*2),
		validator: validator,
		log:       log.Named("store"),
	}
}

// Browse lists catalog entries, optionally filtered by category or
// restricted to featured plugins.
func (c *Client) Browse(ctx context.Context, category string, featuredOnly bool) ([]types.StoreListing, error) {
	var listings []types.StoreListing

	req := c.resty.R().SetContext(ctx).SetResult(&listings)
	if category != "" {
		req.SetQueryParam("category", category)
	}
	if featuredOnly {
		req.SetQueryParam("featured", "true")
	}

	if err := c.call(req, "GET", "/plugins"); err != nil {
		return nil, err
	}
	return listings, nil
}

// Search queries the catalog's full-text search
func (c *Client) Search(ctx context.Context, query string) ([]types.StoreListing, error) {
	var listings []types.StoreListing

	req := c.resty.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetResult(&listings)

	if err := c.call(req, "GET", "/plugins/search"); err != nil {
		return nil, err
	}
	return listings, nil
}

// Download fetches a plugin bundle and re-validates its manifest
// locally. The catalog is not trusted to have validated anything.
func (c *Client) Download(ctx context.Context, listingID string) (*types.Bundle, error) {
	var bundle types.Bundle

	req := c.resty.R().SetContext(ctx).SetResult(&bundle)
	if err := c.call(req, "GET", fmt.Sprintf("/plugins/%s/download", listingID)); err != nil {
		return nil, err
	}

	if verrs := c.validator.ValidateManifest(&bundle.Manifest); len(verrs) > 0 {
		return nil, errs.Wrap(errs.KindValidation, bundle.Manifest.ID, manifest.Errors(verrs), "downloaded manifest rejected")
	}

	c.log.Info("bundle downloaded",
		zap.String("listing_id", listingID),
		zap.String("plugin_id", bundle.Manifest.ID),
		zap.String("version", bundle.Manifest.Version))
	return &bundle, nil
}

// call executes one request through the breaker and maps every failure
// mode onto the catalog-unavailable condition.
func (c *Client) call(req *resty.Request, method, path string) error {
	err := c.breaker.Do(func() error {
		resp, err := req.Execute(method, path)
		if err != nil {
			c.log.Warn("catalog request failed",
				zap.String("path", path), zap.Error(err))
			return errs.Wrap(errs.KindCatalogUnavailable, "", err, "catalog unreachable")
		}
		if resp.IsError() {
			c.log.Warn("catalog returned error",
				zap.String("path", path), zap.Int("status", resp.StatusCode()))
			return errs.New(errs.KindCatalogUnavailable, "", "catalog returned %d for %s", resp.StatusCode(), path)
		}
		return nil
	})
	if errors.Is(err, resilience.ErrOpen) {
		return errs.Wrap(errs.KindCatalogUnavailable, "", err, "catalog circuit open")
	}
	return err
}
