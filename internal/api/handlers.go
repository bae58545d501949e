package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"exotransit/internal/archive"
	"exotransit/internal/common"
	"exotransit/internal/features"
	"exotransit/internal/lightcurve"
	"exotransit/internal/ml"
	"exotransit/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelSource string `json:"model_source"`
	Version     string `json:"version"`
}

// analysisResponse is a prediction plus the context it was made in.
type analysisResponse struct {
	ml.Result
	StarID          string         `json:"star_id,omitempty"`
	StarInfo        map[string]any `json:"star_info,omitempty"`
	Filename        string         `json:"filename,omitempty"`
	DataSource      string         `json:"data_source"`
	TimeData        []float64      `json:"time_data"`
	FluxData        []float64      `json:"flux_data"`
	TotalDataPoints int            `json:"total_data_points"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps an error from decoding or prediction onto a status.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		writeError(w, http.StatusBadRequest, reqErr.msg)
	case errors.Is(err, lightcurve.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Request timed out")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, common.ErrMsgInternal+": "+err.Error())
	}
}

func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes))
}

// record stores the feature vector behind a prediction. Failures only log.
func (s *Server) record(ctx context.Context, source string, res ml.Result) {
	if s.sink == nil {
		return
	}
	v := res.Vector()
	err := s.sink.StoreFeatures(storage.FeatureRecord{
		Source:     source,
		Timestamp:  time.Now(),
		Names:      features.Names(),
		Values:     v.Slice(),
		Prediction: res.Prediction,
		Confidence: res.Confidence,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to store feature record")
	}
}

func (s *Server) preview(lc lightcurve.LightCurve) (time, flux []float64) {
	return lc.Head(s.opts.PreviewPoints)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.predictor.Info()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		Service:     common.ServiceName,
		ModelLoaded: true,
		ModelSource: info.Source,
		Version:     common.ServiceVersion,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.predictor.Info())
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, common.ErrMsgFileTooLarge)
		return
	}
	lc, err := parsePredictBody(body)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	res, err := s.predictor.Predict(ctx, lc)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	s.record(ctx, "predict", res)

	zerolog.Ctx(ctx).Info().
		Str("prediction", res.Prediction).
		Float64("confidence", res.Confidence).
		Msg("Prediction made")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeIdentifier(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, common.ErrMsgFileTooLarge)
		return
	}
	starID, err := parseIdentifierBody(body)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if s.stars == nil {
		writeError(w, http.StatusNotFound, common.ErrMsgNoStarData)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("star_id", starID).Msg("Analyzing star identifier")

	star, err := s.stars.FetchStar(ctx, starID)
	if errors.Is(err, archive.ErrEmptyStarID) {
		writeError(w, http.StatusBadRequest, common.ErrMsgStarIDEmpty)
		return
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if star.LightCurve.Len() == 0 {
		writeError(w, http.StatusNotFound, common.ErrMsgNoStarData)
		return
	}

	res, err := s.predictor.Predict(ctx, star.LightCurve)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	s.record(ctx, "identifier", res)

	t, f := s.preview(star.LightCurve)
	logger.Info().Str("star_id", starID).Str("prediction", res.Prediction).Msg("Analysis complete")
	writeJSON(w, http.StatusOK, analysisResponse{
		Result:          res,
		StarID:          starID,
		StarInfo:        star.Info,
		DataSource:      star.Source,
		TimeData:        t,
		FluxData:        f,
		TotalDataPoints: star.LightCurve.Len(),
	})
}

func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, common.ErrMsgFileTooLarge)
		default:
			writeError(w, http.StatusBadRequest, common.ErrMsgNoFile)
		}
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, common.ErrMsgNoFileSelected)
		return
	}

	lc, err := lightcurve.Parse(file, common.MinFilePoints)
	if err != nil {
		if errors.Is(err, lightcurve.ErrTooFewPoints) {
			writeError(w, http.StatusBadRequest, common.ErrMsgTooFewPoints)
			return
		}
		writeError(w, http.StatusBadRequest, "Error reading file: "+err.Error())
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	res, err := s.predictor.Predict(ctx, lc)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	s.record(ctx, "upload", res)

	t, f := s.preview(lc)
	writeJSON(w, http.StatusOK, analysisResponse{
		Result:          res,
		Filename:        header.Filename,
		DataSource:      common.SourceUpload,
		TimeData:        t,
		FluxData:        f,
		TotalDataPoints: lc.Len(),
	})
}

// handleWebSocket answers each text frame, a /predict body, with a
// prediction or an error object.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.opts.MaxUploadBytes)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var reply any
		lc, err := parsePredictBody(data)
		if err == nil {
			ctx, cancel := s.withTimeout(r)
			var res ml.Result
			res, err = s.predictor.Predict(ctx, lc)
			if err == nil {
				s.record(ctx, "websocket", res)
				reply = res
			}
			cancel()
		}
		if err != nil {
			var reqErr *requestError
			if errors.As(err, &reqErr) {
				reply = errorResponse{Error: reqErr.msg}
			} else {
				reply = errorResponse{Error: err.Error()}
			}
		}

		if err := conn.WriteJSON(reply); err != nil {
			break
		}
	}
}
