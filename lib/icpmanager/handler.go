package icpmanager

import (
	"github.com/go-i2p/go-icp/lib/icp"
	"github.com/go-i2p/logger"
)

// QueryHandler answers one received QUERY. b stamps responses with this
// node's address. A returned error makes the Manager answer ERR instead.
// Handlers run on the receive goroutine and may call back into the
// Manager, including Stop and SetConfig.
type QueryHandler interface {
	HandleQuery(b *icp.Builder, query icp.Message) (icp.Message, error)
}

// QueryHandlerFunc adapts a function to QueryHandler.
type QueryHandlerFunc func(b *icp.Builder, query icp.Message) (icp.Message, error)

// HandleQuery implements QueryHandler.
func (f QueryHandlerFunc) HandleQuery(b *icp.Builder, query icp.Message) (icp.Message, error) {
	return f(b, query)
}

// ResponseListener receives every non-QUERY message read from the socket.
// Listeners run on the receive goroutine and must not block, but may call
// back into the Manager.
type ResponseListener func(msg icp.Message)

// CacheResponder answers queries from a Cache: HIT_OBJ when the peer asked
// for an object and the cache has one that fits in a datagram, HIT when the
// URL is cached, MISS otherwise.
type CacheResponder struct {
	cache Cache
}

// NewCacheResponder returns a CacheResponder over cache.
func NewCacheResponder(cache Cache) *CacheResponder {
	return &CacheResponder{cache: cache}
}

// HandleQuery implements QueryHandler.
func (r *CacheResponder) HandleQuery(b *icp.Builder, query icp.Message) (icp.Message, error) {
	object, ok := r.cache.Lookup(query.PayloadURL())
	if !ok {
		return withEagerFallback(query, b.MakeMiss)
	}
	if query.RequestsHitObj() && object != nil && fitsHitObj(query, object) {
		return withEagerFallback(query, func(q icp.Message) (*icp.EagerMessage, error) {
			return b.MakeHitObj(q, object)
		})
	}
	return asMessage(b.MakeHit(query))
}

func fitsHitObj(query icp.Message, object []byte) bool {
	return icp.ComputeLength(icp.OpHitObj, len(query.PayloadURL()), len(object)) <= icp.MaxLength
}

// withEagerFallback retries build on an eager copy of query when the
// query's representation cannot derive that response kind.
func withEagerFallback(query icp.Message, build func(icp.Message) (*icp.EagerMessage, error)) (icp.Message, error) {
	response, err := build(query)
	if err == nil || !icp.IsUnsupported(err) {
		return asMessage(response, err)
	}
	log.WithFields(logger.Fields{
		"at":             "withEagerFallback",
		"request_number": query.RequestNumber(),
		"reason":         "lazy message cannot derive response",
	}).Debug("materializing query")
	return asMessage(build(icp.Materialize(query)))
}

// asMessage keeps a nil *EagerMessage from becoming a non-nil Message.
func asMessage(m *icp.EagerMessage, err error) (icp.Message, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}
