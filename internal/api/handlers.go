package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"triagecast/internal/forecast"
	"triagecast/internal/triage"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const dateFormat = "2006-01-02"

// predictionSchema guards the request shape before the typed decode.
var predictionSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"intervals", "confidence", "num_sim_runs"},
	Properties: map[string]*jsonschema.Schema{
		"intervals": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type:     "object",
				Required: []string{"start_date", "end_date"},
				Properties: map[string]*jsonschema.Schema{
					"start_date": {Type: "string", Pattern: `^\d{4}-\d{2}-\d{2}$`},
					"end_date":   {Type: "string", Pattern: `^\d{4}-\d{2}-\d{2}$`},
				},
			},
		},
		"confidence":   {Type: "number"},
		"num_sim_runs": {Type: "integer"},
	},
}

var resolvedSchema = func() *jsonschema.Resolved {
	r, err := predictionSchema.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return r
}()

type predictionRequest struct {
	Intervals []struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	} `json:"intervals"`
	Confidence float64 `json:"confidence"`
	SimRuns    int     `json:"num_sim_runs"`
}

func (s *Server) predict(c echo.Context) error {
	clinicID, err := strconv.Atoi(c.Param("clinic_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "clinic_id must be an integer")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "reading request body failed")
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is not valid JSON")
	}
	if err := resolvedSchema.Validate(raw); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req predictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body does not match the expected shape")
	}

	runReq, err := toRunRequest(clinicID, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.pipeline.Predict(c.Request().Context(), runReq)
	if err != nil {
		switch {
		case errors.Is(err, triage.ErrNoHistoricAnchor),
			errors.Is(err, triage.ErrMissingModel),
			errors.Is(err, forecast.ErrInsufficientHistory):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		log.Error().Err(err).Int("clinic", clinicID).Msg("Prediction run failed")
		return echo.NewHTTPError(http.StatusBadGateway, "prediction run failed")
	}

	return c.JSON(http.StatusOK, result)
}

func toRunRequest(clinicID int, req predictionRequest) (triage.Request, error) {
	if len(req.Intervals) == 0 {
		return triage.Request{}, errors.New("at least one interval is required")
	}
	if req.Confidence <= 0 || req.Confidence > 1 {
		return triage.Request{}, errors.New("confidence must be in (0, 1]")
	}
	if req.SimRuns < 1 {
		return triage.Request{}, errors.New("num_sim_runs must be positive")
	}

	intervals := make([]triage.Interval, len(req.Intervals))
	for i, iv := range req.Intervals {
		start, err := time.Parse(dateFormat, iv.StartDate)
		if err != nil {
			return triage.Request{}, errors.New("start_date is not a valid calendar date")
		}
		end, err := time.Parse(dateFormat, iv.EndDate)
		if err != nil {
			return triage.Request{}, errors.New("end_date is not a valid calendar date")
		}
		if end.Before(start) {
			return triage.Request{}, errors.New("interval end_date precedes start_date")
		}
		intervals[i] = triage.Interval{Start: start, End: end}
	}

	return triage.Request{
		ClinicID:   clinicID,
		Intervals:  intervals,
		Confidence: req.Confidence,
		SimRuns:    req.SimRuns,
	}, nil
}
