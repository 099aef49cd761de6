package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIndexerClientTokensOnAccount(t *testing.T) {
	owner, err := ParseAddress("0xcafe")
	if err != nil {
		t.Fatalf("parse owner: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Variables["owner_address"] != owner.HexLiteral() {
			t.Errorf("owner_address = %v, want %s", req.Variables["owner_address"], owner.HexLiteral())
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"current_token_ownerships": []map[string]string{
					{"creator_address": "0xabc", "collection_name": "vip"},
					{"creator_address": "0xdef", "collection_name": "lounge"},
				},
			},
		})
	}))
	defer server.Close()

	client := NewIndexerClient(server.URL)
	tokens, err := client.TokensOnAccount(context.Background(), owner)
	if err != nil {
		t.Fatalf("tokens on account: %v", err)
	}

	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	if tokens[0].CreatorAddress != "0xabc" || tokens[0].CollectionName != "vip" {
		t.Fatalf("unexpected first token: %+v", tokens[0])
	}
}

func TestIndexerClientSurfacesGraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]string{{"message": "field not found"}},
		})
	}))
	defer server.Close()

	client := NewIndexerClient(server.URL)
	if _, err := client.TokensOnAccount(context.Background(), Address{}); err == nil {
		t.Fatal("expected an error for a GraphQL error response")
	}
}

func TestIndexerClientRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewIndexerClient(server.URL)
	if _, err := client.TokensOnAccount(context.Background(), Address{}); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestIndexerClientRejectsEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewIndexerClient(server.URL)
	if _, err := client.TokensOnAccount(context.Background(), Address{}); err == nil {
		t.Fatal("expected an error when the response has no data")
	}
}
