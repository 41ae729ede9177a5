// Package elasticsearch wraps the Elasticsearch client used to execute list page
// queries and to load entity documents.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
	"github.com/jonesrussell/north-cloud/list-pages/internal/retry"
)

// ErrIndexNotFound is returned when a request targets a missing index.
var ErrIndexNotFound = errors.New("index not found")

// Config holds Elasticsearch connection settings.
type Config struct {
	URL         string
	Username    string
	Password    string
	APIKey      string
	MaxRetries  int
	PingTimeout time.Duration
	// Retry controls connection verification at start-up.
	Retry retry.Config
}

// Client wraps the Elasticsearch client.
type Client struct {
	esClient *es.Client
	log      logger.Logger
}

// NewClient creates a client and verifies the connection, retrying with backoff
// while the cluster is not reachable yet.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*Client, error) {
	addresses := []string{cfg.URL}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		addresses = []string{"http://" + cfg.URL}
	}

	clientConfig := es.Config{
		Addresses:  addresses,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	esClient, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	client := NewFromES(esClient, log)

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}

	attempt := 0
	err = retry.Retry(ctx, retryCfg, func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if pingErr := client.Ping(pingCtx); pingErr != nil {
			log.Warn("Elasticsearch not reachable yet",
				logger.Int("attempt", attempt),
				logger.Error(pingErr),
			)
			return pingErr
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ping elasticsearch: %w", err)
	}

	log.Info("Connected to Elasticsearch", logger.Strings("addresses", addresses))
	return client, nil
}

// NewFromES wraps an existing client without verifying the connection.
func NewFromES(esClient *es.Client, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{esClient: esClient, log: log}
}

// Ping verifies the Elasticsearch connection.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.esClient.Ping(c.esClient.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch ping failed [%d]: %s", res.StatusCode, string(body))
	}
	return nil
}

// IndexExists reports whether the index exists.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.esClient.Indices.Exists([]string{name}, c.esClient.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", name, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check index %s: unexpected status %d", name, res.StatusCode)
	}
}

// Execute runs a compiled query. It implements query.Executor.
func (c *Client) Execute(ctx context.Context, q *query.Query) (*query.ResultSet, error) {
	body, err := json.Marshal(q.Compile())
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := c.esClient.Search(
		c.esClient.Search.WithContext(ctx),
		c.esClient.Search.WithIndex(q.Index()),
		c.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("search %s: %w: %w", q.Index(), ErrIndexNotFound, domain.ErrSourceUnavailable)
	}
	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search returned error [%d]: %s", res.StatusCode, string(errBody))
	}

	rs, err := query.ParseResponse(res.Body)
	if err != nil {
		return nil, err
	}

	c.log.Debug("Search executed",
		logger.String("index", q.Index()),
		logger.Int64("total", rs.Total),
		logger.Int("items", len(rs.Items)),
	)
	return rs, nil
}

// Document is one document returned by Mget.
type Document struct {
	ID     string
	Found  bool
	Source map[string]any
}

type mgetResponse struct {
	Docs []struct {
		ID     string         `json:"_id"`
		Found  bool           `json:"found"`
		Source map[string]any `json:"_source"`
	} `json:"docs"`
}

// Mget loads documents by id, in the order of ids. Missing documents come back
// with Found false.
func (c *Client) Mget(ctx context.Context, indexName string, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("marshal mget: %w", err)
	}

	res, err := c.esClient.Mget(
		bytes.NewReader(body),
		c.esClient.Mget.WithContext(ctx),
		c.esClient.Mget.WithIndex(indexName),
	)
	if err != nil {
		return nil, fmt.Errorf("mget request failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("mget %s: %w", indexName, ErrIndexNotFound)
	}
	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("mget returned error [%d]: %s", res.StatusCode, string(errBody))
	}

	var decoded mgetResponse
	if decodeErr := json.NewDecoder(res.Body).Decode(&decoded); decodeErr != nil {
		return nil, fmt.Errorf("decode mget response: %w", decodeErr)
	}

	docs := make([]Document, 0, len(decoded.Docs))
	for _, d := range decoded.Docs {
		docs = append(docs, Document{ID: d.ID, Found: d.Found, Source: d.Source})
	}
	return docs, nil
}

// HealthCheck checks cluster health.
func (c *Client) HealthCheck(ctx context.Context) error {
	res, err := c.esClient.Cluster.Health(c.esClient.Cluster.Health.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster unhealthy [%d]: %s", res.StatusCode, string(body))
	}
	return nil
}
