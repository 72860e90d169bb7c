package api

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"venue-pos/internal/common/httpx"
	"venue-pos/internal/transport/ws"
	"venue-pos/internal/workspace"
)

const workspaceKey = "workspace"

// pins holds one extra workspace reference per recently used venue so that
// plain HTTP reads don't pay a snapshot fetch each time. The reference is
// released when the venue has been idle for the cache TTL.
type pins struct {
	spaces ws.Workspaces
	cache  *gocache.Cache
	mu     sync.Mutex
}

func newPins(spaces ws.Workspaces, ttl time.Duration) *pins {
	p := &pins{spaces: spaces, cache: gocache.New(ttl, ttl/2)}
	p.cache.OnEvicted(func(_ string, v any) {
		p.spaces.Release(v.(*workspace.Workspace))
	})
	return p
}

// acquire returns a workspace reference for the request and the func that
// drops it.
func (p *pins) acquire(ctx context.Context, venueID string) (*workspace.Workspace, func(), error) {
	w, err := p.spaces.Acquire(ctx, venueID)
	if err != nil {
		return nil, nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cache.Replace(venueID, w, gocache.DefaultExpiration) != nil {
		// Delete hands an expired pin still in the map to OnEvicted.
		p.cache.Delete(venueID)
		if pinned, err := p.spaces.Acquire(ctx, venueID); err == nil {
			p.cache.SetDefault(venueID, pinned)
		}
	}
	return w, func() { p.spaces.Release(w) }, nil
}

func (p *pins) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.cache.Items() {
		p.cache.Delete(k)
	}
}

func (a *API) withWorkspace(c *gin.Context) {
	w, release, err := a.pins.acquire(c.Request.Context(), c.Param("venue"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	defer release()
	c.Set(workspaceKey, w)
	c.Next()
}

func space(c *gin.Context) *workspace.Workspace {
	return c.MustGet(workspaceKey).(*workspace.Workspace)
}
