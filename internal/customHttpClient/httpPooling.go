package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/CyberScholar/internal/config"
)

var (
	client *http.Client
	once   sync.Once
)

// GetClient returns the pooled client every llm provider shares
func GetClient() *http.Client {
	once.Do(func() {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConns = config.MaxIdleConns
		transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
		transport.IdleConnTimeout = config.IdleConnTimeout
		client = &http.Client{
			Transport: transport,
			Timeout:   config.LLMRequestTimeout,
		}
	})
	return client
}
