package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// tokensOwnedByAccountQuery asks the indexer for every token currently held
// by an account, keyed by the collection it belongs to.
const tokensOwnedByAccountQuery = `
query TokensOwnedByAccount($owner_address: String, $offset: Int) {
  current_token_ownerships(
    where: {owner_address: {_eq: $owner_address}, amount: {_gt: "0"}}
    offset: $offset
  ) {
    creator_address
    collection_name
  }
}`

// TokenOwnership is one token held by an account, identified by the creator
// of its collection and the collection name.
type TokenOwnership struct {
	CreatorAddress string `json:"creator_address"`
	CollectionName string `json:"collection_name"`
}

// TokenSource lists the tokens held by an account. Satisfied by
// IndexerClient; tests substitute their own.
type TokenSource interface {
	TokensOnAccount(ctx context.Context, owner Address) ([]TokenOwnership, error)
}

// IndexerClient talks to a chain indexer over its GraphQL endpoint.
type IndexerClient struct {
	url    string
	client *http.Client
}

// NewIndexerClient builds a client for the given GraphQL endpoint URL.
func NewIndexerClient(url string) *IndexerClient {
	return &IndexerClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type tokensResponse struct {
	Data *struct {
		CurrentTokenOwnerships []TokenOwnership `json:"current_token_ownerships"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// TokensOnAccount fetches the tokens held by owner.
// TODO: paginate; only the first indexer page is fetched.
func (c *IndexerClient) TokensOnAccount(ctx context.Context, owner Address) ([]TokenOwnership, error) {
	body, err := json.Marshal(graphqlRequest{
		Query: tokensOwnedByAccountQuery,
		Variables: map[string]any{
			"owner_address": owner.HexLiteral(),
			"offset":        0,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal indexer query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build indexer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query indexer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer returned status %d", resp.StatusCode)
	}

	var parsed tokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode indexer response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("indexer query failed: %s", parsed.Errors[0].Message)
	}
	if parsed.Data == nil {
		return nil, fmt.Errorf("indexer returned no data")
	}

	return parsed.Data.CurrentTokenOwnerships, nil
}
