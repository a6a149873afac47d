package watchllm

import (
	"context"
	"net/url"
)

// QueryEvents runs a collector-side event query. Pass-through: the query
// map and response are the collector's own schema, not interpreted here.
func (c *Client) QueryEvents(ctx context.Context, query map[string]any) (map[string]any, error) {
	if query == nil {
		query = map[string]any{}
	}
	if _, ok := query["project_id"]; !ok {
		query["project_id"] = c.cfg.projectID
	}
	return c.sender.QueryEvents(ctx, query)
}

// ProjectMetrics fetches aggregate metrics for the client's project.
func (c *Client) ProjectMetrics(ctx context.Context, params url.Values) (map[string]any, error) {
	return c.sender.ProjectMetrics(ctx, c.cfg.projectID, params)
}
