package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/sercha-hub/internal/connectors/httpapi"
)

// PageSize is the number of products requested per page.
const PageSize = 50

const productsQuery = `query Products($first: Int!, $after: String) {
  shop { currencyCode }
  products(first: $first, after: $after) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        handle
        title
        descriptionHtml
        vendor
        productType
        status
        tags
        updatedAt
        publishedAt
        onlineStoreUrl
        seo { title description }
        images(first: 20) { edges { node { url } } }
        variants(first: 10) { edges { node { id sku price } } }
        metafields(first: 50) { edges { node { namespace key value } } }
      }
    }
  }
}`

const productUpdateMutation = `mutation ProductUpdate($input: ProductInput!) {
  productUpdate(input: $input) {
    product { id }
    userErrors { field message }
  }
}`

// ErrGraphQL indicates the Admin API returned errors in the response body.
var ErrGraphQL = errors.New("shopify: graphql error")

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func execute(ctx context.Context, client *httpapi.Client, cfg *Config, query string, vars map[string]any, out any) error {
	var resp gqlResponse
	if _, err := client.Do(ctx, http.MethodPost, cfg.GraphQLURL(), gqlRequest{Query: query, Variables: vars}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

type productsPage struct {
	Shop struct {
		CurrencyCode string `json:"currencyCode"`
	} `json:"shop"`
	Products struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node map[string]any `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

type productUpdateResult struct {
	ProductUpdate struct {
		UserErrors []struct {
			Field   []string `json:"field"`
			Message string   `json:"message"`
		} `json:"userErrors"`
	} `json:"productUpdate"`
}

// flattenNode replaces connection objects ({edges: [{node}]}) with plain
// lists and stamps the shop currency onto variants lacking one.
func flattenNode(node map[string]any, shopCurrency string) map[string]any {
	for _, key := range []string{"images", "variants", "metafields"} {
		conn, ok := node[key].(map[string]any)
		if !ok {
			continue
		}
		edges, _ := conn["edges"].([]any)
		items := make([]any, 0, len(edges))
		for _, e := range edges {
			if em, ok := e.(map[string]any); ok {
				items = append(items, em["node"])
			}
		}
		node[key] = items
	}
	if shopCurrency == "" {
		return node
	}
	variants, _ := node["variants"].([]any)
	for _, v := range variants {
		if vm, ok := v.(map[string]any); ok {
			if _, has := vm["currencyCode"]; !has {
				vm["currencyCode"] = shopCurrency
			}
		}
	}
	return node
}
