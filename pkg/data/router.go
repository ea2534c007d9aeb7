package data

import (
	"context"
	"fmt"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

// RouterProvider dispatches fetches by asset class, with an optional
// fallback for classes without a dedicated provider.
type RouterProvider struct {
	routes   map[types.AssetClass]Provider
	fallback Provider
}

func NewRouterProvider(fallback Provider) *RouterProvider {
	return &RouterProvider{
		routes:   make(map[types.AssetClass]Provider),
		fallback: fallback,
	}
}

// Route binds one asset class to a provider.
func (r *RouterProvider) Route(class types.AssetClass, p Provider) *RouterProvider {
	r.routes[class] = p
	return r
}

func (r *RouterProvider) Name() string { return "router" }

func (r *RouterProvider) Fetch(ctx context.Context, req Request) (*frame.Frame, error) {
	if p, ok := r.routes[req.AssetClass]; ok {
		return p.Fetch(ctx, req)
	}
	if r.fallback != nil {
		return r.fallback.Fetch(ctx, req)
	}
	return nil, enginerr.New(enginerr.KindDataUnavailable, "data", "fetch",
		fmt.Sprintf("no provider for asset class %q", req.AssetClass))
}
