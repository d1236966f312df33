package cache

import (
	"time"

	c "github.com/patrickmn/go-cache"
	"github.com/waflow/waflow/flow"
)

// FlowCache holds compiled flow definitions so the engine does not
// recompile the graph on every run. Entries are invalidated on save and
// delete.
type FlowCache struct {
	cache *c.Cache
}

func NewFlowCache() *FlowCache {
	return &FlowCache{
		cache: c.New(c.NoExpiration, 10*time.Minute),
	}
}

func (ch *FlowCache) Save(flowId string, fl *flow.Flow) {
	ch.cache.Set(flowId, fl, c.NoExpiration)
}

func (ch *FlowCache) Get(flowId string) (*flow.Flow, bool) {
	val, found := ch.cache.Get(flowId)
	if !found {
		return nil, false
	}
	return val.(*flow.Flow), true
}

func (ch *FlowCache) Delete(flowId string) {
	ch.cache.Delete(flowId)
}
