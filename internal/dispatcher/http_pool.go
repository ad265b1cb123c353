package dispatcher

import (
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPPool round-robins a fixed set of fasthttp clients so concurrent
// moderation calls never serialize on one connection pool.
type HTTPPool struct {
	clients []*fasthttp.Client
	size    uint32
	index   uint32
}

func NewHTTPPool(size int) *HTTPPool {
	if size < 1 {
		size = 1
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(128),
	}

	clients := make([]*fasthttp.Client, size)
	for i := 0; i < size; i++ {
		clients[i] = &fasthttp.Client{
			MaxConnsPerHost:     512,
			MaxIdleConnDuration: 180 * time.Second,
			ReadTimeout:         2 * time.Second,
			WriteTimeout:        2 * time.Second,
			MaxConnWaitTimeout:  500 * time.Millisecond,
			ReadBufferSize:      65536,
			WriteBufferSize:     65536,
			MaxResponseBodySize: 4 * 1024 * 1024,
			TLSConfig:           tlsConfig,
		}
	}

	return &HTTPPool{
		clients: clients,
		size:    uint32(size),
	}
}

func (hp *HTTPPool) GetClient() *fasthttp.Client {
	i := atomic.AddUint32(&hp.index, 1)
	return hp.clients[i%hp.size]
}
