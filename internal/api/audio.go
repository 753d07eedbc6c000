package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// registerAudioRoutes registers audio capture control.
func (s *Server) registerAudioRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-capturing-audio",
		Method:      http.MethodPost,
		Path:        "/api/audio/start",
		Summary:     "Start Capturing Audio",
		Description: "Begin draining the audio ring buffer to a WAV file in the background",
		Tags:        []string{"audio"},
		Errors:      []int{409, 500},
	}, func(_ context.Context, input *AudioStartRequest) (*StatusResponse, error) {
		if err := s.board.StartCapturingAudio(input.Body.Path); err != nil {
			return nil, s.mapError(err)
		}
		resp := &StatusResponse{}
		resp.Body.Status = "capturing"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-capturing-audio",
		Method:      http.MethodPost,
		Path:        "/api/audio/stop",
		Summary:     "Stop Capturing Audio",
		Description: "Stop the drain, finalize the WAV header and return the file path",
		Tags:        []string{"audio"},
		Errors:      []int{500, 507},
	}, func(_ context.Context, _ *struct{}) (*AudioStopResponse, error) {
		path, err := s.board.StopCapturingAudio()
		if err != nil {
			return nil, s.mapError(err)
		}
		resp := &AudioStopResponse{}
		resp.Body.Path = path
		return resp, nil
	})
}
