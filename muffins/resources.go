package muffins

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	cacheKeyModels = "muffins:models"
	cacheKeyPlans  = "muffins:subscriptions"
)

type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type Plan struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Credits  float64 `json:"credits,omitempty"`
	Interval string  `json:"interval,omitempty"`
}

type Balance struct {
	Credits float64 `json:"credits"`
	// Raw keeps the full response; the balance payload is not versioned.
	Raw map[string]any `json:"-"`
}

type Models struct {
	client *Client
}

// List returns the models available to the API key.
func (m *Models) List(ctx context.Context) ([]Model, error) {
	var models []Model
	if err := m.client.cachedList(ctx, "models", "/ai-model", cacheKeyModels, &models); err != nil {
		return nil, err
	}
	return models, nil
}

type Subscriptions struct {
	client *Client
}

// List returns the subscription plans on offer.
func (s *Subscriptions) List(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := s.client.cachedList(ctx, "subscriptions", "/subscription", cacheKeyPlans, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

type Credits struct {
	client *Client
}

// Balance returns the current credit balance. It is never cached.
func (c *Credits) Balance(ctx context.Context) (*Balance, error) {
	var raw map[string]any
	if err := c.client.getJSON(ctx, "balance", "/user/balance", &raw); err != nil {
		return nil, err
	}

	b := &Balance{Raw: raw}
	for _, key := range []string{"credits", "balance", "creditsRemaining"} {
		if v, ok := raw[key].(float64); ok {
			b.Credits = v
			break
		}
	}
	return b, nil
}

// cachedList fetches a list endpoint, serving it from the cache when one is
// configured. out must be a pointer to a slice.
func (c *Client) cachedList(ctx context.Context, endpoint, path, key string, out any) error {
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if raw, ok := cached.(json.RawMessage); ok {
				c.metrics.RecordCacheHit()
				return decodeList(raw, out)
			}
		}
		c.metrics.RecordCacheMiss()
	}

	var raw json.RawMessage
	if err := c.getJSON(ctx, endpoint, path, &raw); err != nil {
		return err
	}
	if err := decodeList(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}

	if c.cache != nil {
		c.cache.Set(key, raw, c.cacheTTL)
	}
	return nil
}

// decodeList accepts both a bare array and a {"data": [...]} envelope.
func decodeList(raw json.RawMessage, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}
	return json.Unmarshal(raw, out)
}
