package pool

import (
	"context"
	"fmt"
	"time"

	"matchpool/core"

	"github.com/bluele/gcache"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type client struct {
	resty  *resty.Client
	assets gcache.Cache
}

// New new pool client against the base protocol's HTTP API
func New(cfg core.PoolCfg) core.Pool {
	return &client{
		resty: resty.New().
			SetBaseURL(cfg.Endpoint).
			SetHeader("Content-Type", "application/json").
			SetTimeout(10 * time.Second),
		assets: gcache.New(256).LRU().Expiration(time.Hour).Build(),
	}
}

func (c *client) Indexes(ctx context.Context, assetID string) (*core.PoolIndexes, error) {
	var indexes core.PoolIndexes
	r, err := c.resty.R().SetContext(ctx).
		SetResult(&indexes).
		Get(fmt.Sprintf("/markets/%s/indexes", assetID))
	if err != nil {
		return nil, err
	}
	if !r.IsSuccess() {
		return nil, fmt.Errorf("pool: indexes %s: %s", assetID, r.Status())
	}

	return &indexes, nil
}

func (c *client) Asset(ctx context.Context, assetID string) (*core.PoolAsset, error) {
	if v, err := c.assets.Get(assetID); err == nil {
		if asset, ok := v.(*core.PoolAsset); ok {
			return asset, nil
		}
	}

	var asset core.PoolAsset
	r, err := c.resty.R().SetContext(ctx).
		SetResult(&asset).
		Get(fmt.Sprintf("/assets/%s", assetID))
	if err != nil {
		return nil, err
	}
	if !r.IsSuccess() {
		return nil, fmt.Errorf("pool: asset %s: %s", assetID, r.Status())
	}

	_ = c.assets.Set(assetID, &asset)
	return &asset, nil
}

func (c *client) Supply(ctx context.Context, assetID string, amount decimal.Decimal) error {
	return c.move(ctx, "supply", assetID, amount)
}

func (c *client) Withdraw(ctx context.Context, assetID string, amount decimal.Decimal) error {
	return c.move(ctx, "withdraw", assetID, amount)
}

func (c *client) Borrow(ctx context.Context, assetID string, amount decimal.Decimal) error {
	return c.move(ctx, "borrow", assetID, amount)
}

func (c *client) Repay(ctx context.Context, assetID string, amount decimal.Decimal) error {
	return c.move(ctx, "repay", assetID, amount)
}

func (c *client) move(ctx context.Context, op, assetID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}

	r, err := c.resty.R().SetContext(ctx).
		SetBody(map[string]interface{}{"amount": amount}).
		Post(fmt.Sprintf("/markets/%s/%s", assetID, op))
	if err != nil {
		return err
	}
	if !r.IsSuccess() {
		return fmt.Errorf("pool: %s %s: %s", op, assetID, r.Status())
	}

	return nil
}
