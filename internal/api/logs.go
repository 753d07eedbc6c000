package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/chameleond/internal/logging"
)

// registerLogRoutes registers the log history endpoint.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Get Logs",
		Description: "Recent log lines from the in-memory ring, oldest first",
		Tags:        []string{"logs"},
	}, func(_ context.Context, input *struct {
		Limit int `query:"limit" minimum:"0" default:"0" doc:"Return only the newest N lines, all when zero"`
	}) (*LogsResponse, error) {
		entries := logging.History().ReadAll()
		if input.Limit > 0 && input.Limit < len(entries) {
			entries = entries[len(entries)-input.Limit:]
		}
		resp := &LogsResponse{}
		resp.Body.Lines = make([]string, len(entries))
		for i, e := range entries {
			resp.Body.Lines[i] = logging.FormatLine(e)
		}
		return resp, nil
	})
}
