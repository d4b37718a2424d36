package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Transport http.RoundTripper
}

type Client struct {
	es *elasticsearch.Client
}

func NewClient(cfg *Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, err
	}
	return &Client{es: es}, nil
}

// CreateIndex creates name with mapping unless it already exists.
func (c *Client) CreateIndex(ctx context.Context, name, mapping string) error {
	exists, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := c.es.Indices.Create(name,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError("create index", res)
}

func (c *Client) Index(ctx context.Context, index, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := c.es.Index(index, bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(id),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError("index document", res)
}

type BulkDoc struct {
	ID  string
	Doc any
}

// BulkIndex writes docs into index through the bulk API. It returns an error
// when the indexer fails or any document is rejected.
func (c *Client) BulkIndex(ctx context.Context, index string, docs []BulkDoc) error {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     c.es,
		Index:      index,
		NumWorkers: 2,
		FlushBytes: 1 << 20,
	})
	if err != nil {
		return err
	}

	for _, d := range docs {
		data, err := json.Marshal(d.Doc)
		if err != nil {
			_ = bi.Close(ctx)
			return err
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: d.ID,
			Body:       bytes.NewReader(data),
		})
		if err != nil {
			_ = bi.Close(ctx)
			return err
		}
	}

	if err := bi.Close(ctx); err != nil {
		return err
	}
	if failed := bi.Stats().NumFailed; failed > 0 {
		return fmt.Errorf("elasticsearch bulk index: %d of %d documents failed", failed, len(docs))
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	return fmt.Errorf("elasticsearch %s: %s", op, res.Status())
}
