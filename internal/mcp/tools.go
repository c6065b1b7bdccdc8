// Package mcp exposes the rain outlook as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/miyamo2/qilin"

	"github.com/i474232898/rain-outlook/internal/weather"
)

const dateLayout = "2006-01-02"

// ToolRainForecastRequest contains input parameters for the rain_forecast tool.
type ToolRainForecastRequest struct {
	Location string `json:"location,omitempty" jsonschema:"description=Location name as listed by list_locations"`
	Date     string `json:"date,omitempty" jsonschema:"description=Anchor day in YYYY-MM-DD; empty means the latest recorded day"`
}

// ToolRainBacktestRequest contains input parameters for the rain_backtest tool.
type ToolRainBacktestRequest struct {
	Location string `json:"location,omitempty" jsonschema:"description=Location name as listed by list_locations"`
	From     string `json:"from" jsonschema:"description=First anchor day in YYYY-MM-DD"`
	To       string `json:"to" jsonschema:"description=Last anchor day in YYYY-MM-DD"`
}

// ToolListLocationsRequest takes no parameters.
type ToolListLocationsRequest struct{}

// Tools serves MCP tool calls from a weather.Service.
type Tools struct {
	service         *weather.Service
	defaultLocation string
}

// NewTools creates Tools. defaultLocation is used when a request omits one.
func NewTools(service *weather.Service, defaultLocation string) *Tools {
	return &Tools{service: service, defaultLocation: defaultLocation}
}

// Register adds every tool to q.
func (t *Tools) Register(q *qilin.Qilin) {
	q.Tool("rain_forecast",
		(*ToolRainForecastRequest)(nil),
		t.handleForecast,
		qilin.ToolWithDescription("Estimate the chance of rain for the two days after an anchor day using analog days"))

	q.Tool("rain_backtest",
		(*ToolRainBacktestRequest)(nil),
		t.handleBacktest,
		qilin.ToolWithDescription("Replay the estimator over a date range and score it against recorded outcomes"))

	q.Tool("list_locations",
		(*ToolListLocationsRequest)(nil),
		t.handleLocations,
		qilin.ToolWithDescription("List locations with loaded history and their date coverage"))
}

func (t *Tools) handleForecast(c qilin.ToolContext) error {
	var req ToolRainForecastRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	prediction, err := t.Forecast(req)
	if err != nil {
		return err
	}
	return c.JSON(prediction)
}

func (t *Tools) handleBacktest(c qilin.ToolContext) error {
	var req ToolRainBacktestRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	report, err := t.Backtest(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (t *Tools) handleLocations(c qilin.ToolContext) error {
	locs, err := t.service.Locations()
	if err != nil {
		return err
	}
	return c.JSON(locs)
}

// Forecast resolves the request and predicts from the stored history.
func (t *Tools) Forecast(req ToolRainForecastRequest) (weather.Prediction, error) {
	var date time.Time
	if req.Date != "" {
		d, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			return weather.Prediction{}, fmt.Errorf("date: %w", err)
		}
		date = d
	}
	return t.service.Predict(t.location(req.Location), date)
}

// Backtest resolves the request and scores the estimator over the range.
func (t *Tools) Backtest(ctx context.Context, req ToolRainBacktestRequest) (weather.BacktestReport, error) {
	if req.From == "" || req.To == "" {
		return weather.BacktestReport{}, errors.New("from and to are required")
	}
	from, err := time.Parse(dateLayout, req.From)
	if err != nil {
		return weather.BacktestReport{}, fmt.Errorf("from: %w", err)
	}
	to, err := time.Parse(dateLayout, req.To)
	if err != nil {
		return weather.BacktestReport{}, fmt.Errorf("to: %w", err)
	}
	if to.Before(from) {
		return weather.BacktestReport{}, errors.New("to must not be before from")
	}
	return t.service.Backtest(ctx, t.location(req.Location), from, to)
}

func (t *Tools) location(name string) string {
	if name == "" {
		return t.defaultLocation
	}
	return name
}
