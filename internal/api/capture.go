package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const defaultDumpTimeout = 5 * time.Second

// registerCaptureRoutes registers frame capture and readback.
func (s *Server) registerCaptureRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-resolution",
		Method:      http.MethodGet,
		Path:        "/api/ports/{id}/resolution",
		Summary:     "Get Resolution",
		Description: "Detected frame resolution after the link has locked",
		Tags:        []string{"capture"},
		Errors:      []int{404, 500},
	}, func(_ context.Context, input *struct {
		ID int `path:"id"`
	}) (*ResolutionResponse, error) {
		p, err := s.board.Port(input.ID)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		w, h, err := p.Frames.ComputeResolution()
		if err != nil {
			return nil, s.mapError(err)
		}
		resp := &ResolutionResponse{}
		resp.Body.Width = w
		resp.Body.Height = h
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-max-frame-limit",
		Method:      http.MethodGet,
		Path:        "/api/ports/{id}/max-frame-limit",
		Summary:     "Get Max Frame Limit",
		Tags:        []string{"capture"},
		Errors:      []int{404, 500},
	}, func(_ context.Context, input *struct {
		ID     int `path:"id"`
		Width  int `query:"width" minimum:"1"`
		Height int `query:"height" minimum:"1"`
	}) (*LimitResponse, error) {
		p, err := s.board.Port(input.ID)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		resp := &LimitResponse{}
		resp.Body.Limit = p.Frames.GetMaxFrameLimit(input.Width, input.Height)
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "dump-frames",
		Method:      http.MethodPost,
		Path:        "/api/ports/{id}/frames/dump",
		Summary:     "Dump Frames To Limit",
		Description: "Capture a fixed number of frames synchronously, returning once the limit is hit",
		Tags:        []string{"capture"},
		Errors:      []int{404, 422, 500, 504},
	}, func(ctx context.Context, input *DumpFramesRequest) (*StatusResponse, error) {
		timeout := defaultDumpTimeout
		if input.Body.TimeoutSeconds > 0 {
			timeout = time.Duration(input.Body.TimeoutSeconds * float64(time.Second))
		}
		err := s.board.DumpFramesToLimit(ctx, input.ID, input.Body.Limit, toWindow(input.Body.Window), timeout)
		if err != nil {
			return nil, s.mapError(err)
		}
		resp := &StatusResponse{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-dumping-frames",
		Method:      http.MethodPost,
		Path:        "/api/ports/{id}/frames/start",
		Summary:     "Start Dumping Frames",
		Tags:        []string{"capture"},
		Errors:      []int{404, 422, 500},
	}, func(_ context.Context, input *StartDumpingRequest) (*StatusResponse, error) {
		err := s.board.StartDumpingFrames(input.ID, input.Body.BufferLimit, toWindow(input.Body.Window), input.Body.HashLimit)
		if err != nil {
			return nil, s.mapError(err)
		}
		resp := &StatusResponse{}
		resp.Body.Status = "capturing"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-dumping-frames",
		Method:      http.MethodPost,
		Path:        "/api/ports/{id}/frames/stop",
		Summary:     "Stop Dumping Frames",
		Tags:        []string{"capture"},
		Errors:      []int{404, 500},
	}, func(_ context.Context, input *struct {
		ID int `path:"id"`
	}) (*StatusResponse, error) {
		if err := s.board.StopDumpingFrames(input.ID); err != nil {
			return nil, s.mapError(err)
		}
		resp := &StatusResponse{}
		resp.Body.Status = "stopped"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-frame-count",
		Method:      http.MethodGet,
		Path:        "/api/ports/{id}/frames/count",
		Summary:     "Get Dumped Frame Count",
		Tags:        []string{"capture"},
		Errors:      []int{404},
	}, func(_ context.Context, input *struct {
		ID int `path:"id"`
	}) (*CountResponse, error) {
		p, err := s.board.Port(input.ID)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		resp := &CountResponse{}
		resp.Body.Count = p.Frames.GetDumpedFrameCount()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "read-frame",
		Method:      http.MethodGet,
		Path:        "/api/ports/{id}/frames/{index}",
		Summary:     "Read Dumped Frame",
		Description: "Raw bottom-up BGR pixels of one captured frame",
		Tags:        []string{"capture"},
		Errors:      []int{404, 500},
	}, func(ctx context.Context, input *struct {
		ID    int `path:"id"`
		Index int `path:"index" minimum:"0"`
	}) (*FrameResponse, error) {
		p, err := s.board.Port(input.ID)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		pixels, err := p.Frames.ReadDumpedFrame(ctx, input.Index)
		if err != nil {
			return nil, s.mapError(err)
		}
		return &FrameResponse{
			ContentType: "application/octet-stream",
			Body:        pixels,
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-frame-hashes",
		Method:      http.MethodGet,
		Path:        "/api/ports/{id}/frames/hashes",
		Summary:     "Get Frame Hashes",
		Tags:        []string{"capture"},
		Errors:      []int{404, 500},
	}, func(_ context.Context, input *struct {
		ID    int `path:"id"`
		Start int `query:"start" minimum:"0"`
		Stop  int `query:"stop" minimum:"0"`
	}) (*HashesResponse, error) {
		p, err := s.board.Port(input.ID)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		hashes, err := p.Frames.GetFrameHashes(input.Start, input.Stop)
		if err != nil {
			return nil, s.mapError(err)
		}
		resp := &HashesResponse{}
		resp.Body.Hashes = make([][4]uint16, len(hashes))
		for i, h := range hashes {
			resp.Body.Hashes[i] = h
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-frame-histograms",
		Method:      http.MethodGet,
		Path:        "/api/ports/{id}/frames/histograms",
		Summary:     "Get Frame Histograms",
		Tags:        []string{"capture"},
		Errors:      []int{404, 500},
	}, func(_ context.Context, input *struct {
		ID    int `path:"id"`
		Start int `query:"start" minimum:"0"`
		Stop  int `query:"stop" minimum:"0"`
	}) (*HistogramsResponse, error) {
		p, err := s.board.Port(input.ID)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		histograms, err := p.Frames.GetHistograms(input.Start, input.Stop)
		if err != nil {
			return nil, s.mapError(err)
		}
		resp := &HistogramsResponse{}
		resp.Body.Histograms = make([][]float64, len(histograms))
		for i, h := range histograms {
			resp.Body.Histograms[i] = h
		}
		return resp, nil
	})
}
