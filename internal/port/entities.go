package port

import (
	"context"
	"net/http"
	"net/url"
)

const (
	searchEntitiesPath = "/entities/search"
	datasourceProperty = "$datasource"
)

// Entity is the subset of a catalog entity this tool reads.
type Entity struct {
	Identifier string `json:"identifier"`
	Blueprint  string `json:"blueprint"`
}

// SearchRule is a single condition of a search query.
type SearchRule struct {
	Property string `json:"property"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// SearchQuery combines rules with a logical combinator ("and" / "or").
type SearchQuery struct {
	Combinator string       `json:"combinator"`
	Rules      []SearchRule `json:"rules"`
}

// DatasourceQuery matches every entity whose $datasource contains target.
func DatasourceQuery(target string) SearchQuery {
	return SearchQuery{
		Combinator: "and",
		Rules: []SearchRule{
			{Property: datasourceProperty, Operator: "contains", Value: target},
		},
	}
}

type searchResponse struct {
	Entities []Entity `json:"entities"`
}

// BulkDeleteResult is the JSON document returned by a bulk delete call.
type BulkDeleteResult map[string]any

type bulkDeleteRequest struct {
	Entities []string `json:"entities"`
}

// SearchEntities returns every entity whose data source contains datasource.
// Only identifier and blueprint are requested. The search is not paginated.
func (c *Client) SearchEntities(ctx context.Context, token string, datasource string) ([]Entity, error) {
	res, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   searchEntitiesPath,
		Query:  url.Values{"include": []string{"identifier", "blueprint"}},
		Token:  token,
		Body:   DatasourceQuery(datasource),
	})
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return nil, newRequestError("search entities", res)
	}

	var payload searchResponse
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Entities == nil {
		return []Entity{}, nil
	}
	return payload.Entities, nil
}

// BulkDeleteEntities deletes identifiers of a single blueprint in one request.
func (c *Client) BulkDeleteEntities(
	ctx context.Context, token string, blueprint string, identifiers []string,
) (BulkDeleteResult, error) {
	res, err := c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   "/blueprints/" + url.PathEscape(blueprint) + "/bulk/entities",
		Token:  token,
		Body:   bulkDeleteRequest{Entities: identifiers},
	})
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return nil, newRequestError("bulk delete entities", res)
	}

	var result BulkDeleteResult
	if err := res.Decode(&result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteIntegration removes the integration record itself. Any 2xx status,
// including 204 with no body, counts as success.
func (c *Client) DeleteIntegration(ctx context.Context, token string, integrationID string) error {
	res, err := c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   "/integration/" + url.PathEscape(integrationID),
		Token:  token,
	})
	if err != nil {
		return err
	}
	if !res.IsSuccess() {
		return newRequestError("delete integration", res)
	}
	return nil
}
