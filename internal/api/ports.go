package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// registerPortRoutes registers plug control and link stabilization.
func (s *Server) registerPortRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-ports",
		Method:      http.MethodGet,
		Path:        "/api/ports",
		Summary:     "List Ports",
		Tags:        []string{"ports"},
	}, func(_ context.Context, _ *struct{}) (*PortListResponse, error) {
		resp := &PortListResponse{}
		for _, p := range s.board.Ports() {
			plugged, _ := s.board.IsPlugged(p.ID)
			state := p.FSM.State()
			resp.Body.Ports = append(resp.Body.Ports, PortData{
				ID:        p.ID,
				Name:      p.Name,
				Plugged:   plugged,
				Locked:    state.Locked(),
				DualPixel: state.DualPixel(),
				PixelMHz:  state.PixelClockMHz(),
			})
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "plug-port",
		Method:      http.MethodPost,
		Path:        "/api/ports/{id}/plug",
		Summary:     "Plug Port",
		Description: "Assert the port's hot-plug signal toward the device under test",
		Tags:        []string{"ports"},
		Errors:      []int{404, 500},
	}, func(_ context.Context, input *struct {
		ID int `path:"id"`
	}) (*StatusResponse, error) {
		if err := s.board.Plug(input.ID); err != nil {
			return nil, s.mapError(err)
		}
		resp := &StatusResponse{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "unplug-port",
		Method:      http.MethodPost,
		Path:        "/api/ports/{id}/unplug",
		Summary:     "Unplug Port",
		Tags:        []string{"ports"},
		Errors:      []int{404, 500},
	}, func(_ context.Context, input *struct {
		ID int `path:"id"`
	}) (*StatusResponse, error) {
		if err := s.board.Unplug(input.ID); err != nil {
			return nil, s.mapError(err)
		}
		resp := &StatusResponse{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "wait-video-stable",
		Method:      http.MethodPost,
		Path:        "/api/ports/{id}/wait-video-stable",
		Summary:     "Wait Video Input Stable",
		Tags:        []string{"ports"},
		Errors:      []int{404, 500},
	}, func(ctx context.Context, input *struct {
		ID             int     `path:"id"`
		TimeoutSeconds float64 `query:"timeout_seconds" default:"5"`
	}) (*StableResponse, error) {
		timeout := time.Duration(input.TimeoutSeconds * float64(time.Second))
		stable, err := s.board.WaitVideoInputStable(ctx, input.ID, timeout)
		if err != nil {
			return nil, s.mapError(err)
		}
		resp := &StableResponse{}
		resp.Body.Stable = stable
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stabilize-port",
		Method:      http.MethodPost,
		Path:        "/api/ports/{id}/stabilize",
		Summary:     "Stabilize Link",
		Description: "Select the port into the capture pipeline and run one link FSM pass",
		Tags:        []string{"ports"},
		Errors:      []int{404, 412, 500, 504},
	}, func(ctx context.Context, input *struct {
		ID int `path:"id"`
	}) (*StatusResponse, error) {
		if err := s.board.Stabilize(ctx, input.ID); err != nil {
			return nil, s.mapError(err)
		}
		resp := &StatusResponse{}
		resp.Body.Status = "locked"
		return resp, nil
	})
}
