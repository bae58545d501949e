package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"exotransit/internal/common"
	"exotransit/internal/lightcurve"
)

// predictRequest keeps both arrays raw so lengths can be checked before
// any element is parsed.
type predictRequest struct {
	FluxData json.RawMessage `json:"flux_data"`
	TimeData json.RawMessage `json:"time_data"`
}

// requestError is a client error whose message goes back verbatim.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeObject unmarshals a JSON object body. Empty bodies, invalid JSON
// and empty objects are all "no data".
func decodeObject(body []byte, into any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return badRequest(common.ErrMsgNoJSON)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil || len(probe) == 0 {
		return badRequest(common.ErrMsgNoJSON)
	}
	if err := json.Unmarshal(trimmed, into); err != nil {
		return badRequest(common.ErrMsgNonNumeric)
	}
	return nil
}

// parsePredictBody turns a /predict body into a validated light curve.
// Check order: presence, list shape, length agreement, then numeric values.
func parsePredictBody(body []byte) (lightcurve.LightCurve, error) {
	var req predictRequest
	if err := decodeObject(body, &req); err != nil {
		return lightcurve.LightCurve{}, err
	}
	if isNull(req.FluxData) {
		return lightcurve.LightCurve{}, badRequest(common.ErrMsgFluxRequired)
	}

	var fluxRaw []json.RawMessage
	if err := json.Unmarshal(req.FluxData, &fluxRaw); err != nil || len(fluxRaw) == 0 {
		return lightcurve.LightCurve{}, badRequest(common.ErrMsgFluxEmpty)
	}

	var timeRaw []json.RawMessage
	if !isNull(req.TimeData) {
		if err := json.Unmarshal(req.TimeData, &timeRaw); err != nil {
			return lightcurve.LightCurve{}, badRequest(common.ErrMsgLengthMismatch)
		}
		if len(timeRaw) != len(fluxRaw) {
			return lightcurve.LightCurve{}, badRequest(common.ErrMsgLengthMismatch)
		}
	}

	flux, err := parseNumbers(fluxRaw)
	if err != nil {
		return lightcurve.LightCurve{}, err
	}
	time := lightcurve.IndexTime(len(flux))
	if timeRaw != nil {
		if time, err = parseNumbers(timeRaw); err != nil {
			return lightcurve.LightCurve{}, err
		}
	}

	lc, err := lightcurve.New(time, flux)
	if err != nil {
		return lightcurve.LightCurve{}, badRequest(common.ErrMsgNonNumeric)
	}
	return lc, nil
}

// parseNumbers accepts JSON numbers and numeric strings.
func parseNumbers(raw []json.RawMessage) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, r := range raw {
		// null decodes into a float64 without error
		if isNull(r) {
			return nil, badRequest(common.ErrMsgNonNumeric)
		}
		var f float64
		if err := json.Unmarshal(r, &f); err == nil {
			out[i] = f
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return nil, badRequest(common.ErrMsgNonNumeric)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, badRequest(common.ErrMsgNonNumeric)
		}
		out[i] = f
	}
	return out, nil
}

type identifierRequest struct {
	StarID json.RawMessage `json:"star_id"`
}

func parseIdentifierBody(body []byte) (string, error) {
	var req identifierRequest
	if err := decodeObject(body, &req); err != nil {
		return "", err
	}
	if isNull(req.StarID) {
		return "", badRequest(common.ErrMsgStarIDRequired)
	}
	var id string
	if err := json.Unmarshal(req.StarID, &id); err != nil {
		return "", badRequest(common.ErrMsgStarIDRequired)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", badRequest(common.ErrMsgStarIDEmpty)
	}
	return id, nil
}
