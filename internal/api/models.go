package api

// PortData describes one connector.
type PortData struct {
	ID        int     `json:"id" example:"1" doc:"Port identifier"`
	Name      string  `json:"name" example:"hdmi" doc:"Connector name"`
	Plugged   bool    `json:"plugged" doc:"Whether the port's plug is asserted"`
	Locked    bool    `json:"locked" doc:"Whether the link FSM reached locked"`
	DualPixel bool    `json:"dual_pixel" doc:"Whether both pixel paths are active"`
	PixelMHz  float64 `json:"pixel_clock_mhz" doc:"Last measured pixel clock"`
}

// PortListResponse lists the board's ports.
type PortListResponse struct {
	Body struct {
		Ports []PortData `json:"ports"`
	}
}

// StatusResponse is a generic success envelope.
type StatusResponse struct {
	Body struct {
		Status string `json:"status" example:"ok"`
	}
}

// StableResponse reports the outcome of a stability wait.
type StableResponse struct {
	Body struct {
		Stable bool `json:"stable" doc:"Whether video input became stable before the timeout"`
	}
}

// ResolutionResponse carries the captured frame resolution.
type ResolutionResponse struct {
	Body struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
}

// LimitResponse carries a frame-count limit.
type LimitResponse struct {
	Body struct {
		Limit int `json:"limit" doc:"Largest frame count the ring can hold"`
	}
}

// CountResponse carries a captured frame count.
type CountResponse struct {
	Body struct {
		Count int `json:"count" doc:"Complete frames captured so far"`
	}
}

// WindowParams is an optional crop rectangle in request bodies. A nil
// value captures the full screen.
type WindowParams struct {
	X      int `json:"x" doc:"Crop origin X"`
	Y      int `json:"y" doc:"Crop origin Y"`
	Width  int `json:"width" doc:"Crop width"`
	Height int `json:"height" doc:"Crop height"`
}

// DumpFramesRequest starts a bounded synchronous capture.
type DumpFramesRequest struct {
	ID   int `path:"id"`
	Body struct {
		Limit          int           `json:"limit" minimum:"1" doc:"Frames to capture"`
		TimeoutSeconds float64       `json:"timeout_seconds,omitempty" doc:"Wait budget, default 5s"`
		Window         *WindowParams `json:"window,omitempty" doc:"Crop rectangle, full screen when omitted"`
	}
}

// StartDumpingRequest starts a continuous capture.
type StartDumpingRequest struct {
	ID   int `path:"id"`
	Body struct {
		BufferLimit int           `json:"buffer_limit" minimum:"1" doc:"Frames the ring holds before wrapping"`
		HashLimit   int           `json:"hash_limit" minimum:"1" doc:"Frames to hash before the monitor exits"`
		Window      *WindowParams `json:"window,omitempty" doc:"Crop rectangle, full screen when omitted"`
	}
}

// FrameResponse carries one frame's raw pixels.
type FrameResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// HashesResponse carries per-frame hashes.
type HashesResponse struct {
	Body struct {
		Hashes [][4]uint16 `json:"hashes" doc:"Four 16-bit words per frame"`
	}
}

// HistogramsResponse carries per-frame histograms.
type HistogramsResponse struct {
	Body struct {
		Histograms [][]float64 `json:"histograms" doc:"108 normalized values per frame"`
	}
}

// AudioStartRequest starts audio capture.
type AudioStartRequest struct {
	Body struct {
		Path string `json:"path,omitempty" doc:"Output WAV path, temp file when omitted"`
	}
}

// AudioStopResponse returns the finished WAV path.
type AudioStopResponse struct {
	Body struct {
		Path string `json:"path" doc:"Path of the finalized WAV file"`
	}
}

// LogsResponse returns buffered log lines.
type LogsResponse struct {
	Body struct {
		Lines []string `json:"lines"`
	}
}
