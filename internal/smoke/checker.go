package smoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/metricsvc/internal/shared/id"
)

// requiredFamily must be present in every scrape once a request was served
const requiredFamily = "http_requests_total"

// ErrCheckFailed is returned by Report.Err when at least one check failed
var ErrCheckFailed = errors.New("smoke check failed")

// Result is the outcome of one check
type Result struct {
	Name     string
	Duration time.Duration
	Err      error
}

// OK reports whether the check passed
func (r Result) OK() bool { return r.Err == nil }

// Report is the outcome of a full run
type Report struct {
	Results []Result
}

// Failed counts the failed checks
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// Err summarizes the failures, or returns nil when every check passed
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if !res.OK() {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrCheckFailed, errors.Join(errs...))
}

// Checker exercises a running instance over HTTP
type Checker struct {
	client      *resty.Client
	metricsPath string
	logger      *zap.Logger
}

// New creates a checker for the instance at baseURL
func New(baseURL, metricsPath string, timeout time.Duration, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("User-Agent", "metricsvc-check/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500)
		})

	return &Checker{client: client, metricsPath: metricsPath, logger: logger}
}

// Run executes every check in order and reports all outcomes
func (c *Checker) Run(ctx context.Context) Report {
	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"root", c.checkRoot},
		{"health", c.checkHealth},
		{"data", c.checkData},
		{"metrics", c.checkMetrics},
	}

	var report Report
	for _, check := range checks {
		start := time.Now()
		err := check.fn(ctx)
		res := Result{Name: check.name, Duration: time.Since(start), Err: err}
		report.Results = append(report.Results, res)

		if err != nil {
			c.logger.Error("Smoke check failed", zap.String("check", check.name), zap.Error(err))
		} else {
			c.logger.Info("Smoke check passed",
				zap.String("check", check.name),
				zap.Duration("duration", res.Duration),
			)
		}
	}
	return report
}

type statusBody struct {
	Status  string `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Checker) checkRoot(ctx context.Context) error {
	var body statusBody
	if err := c.getJSON(ctx, "/", &body); err != nil {
		return err
	}
	if body.Status != "running" {
		return fmt.Errorf("unexpected status %q", body.Status)
	}
	return nil
}

func (c *Checker) checkHealth(ctx context.Context) error {
	var body statusBody
	if err := c.getJSON(ctx, "/health", &body); err != nil {
		return err
	}
	if body.Status != "healthy" {
		return fmt.Errorf("unexpected status %q", body.Status)
	}
	return nil
}

func (c *Checker) checkData(ctx context.Context) error {
	key := "smoke-" + id.NewRequestID().String()
	path := "/data/" + key

	var stored statusBody
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"key": key, "value": map[string]any{"check": "smoke"}}).
		SetResult(&stored).
		Post("/data")
	if err := expectOK(resp, err); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if !stored.Success {
		return fmt.Errorf("store: %s", stored.Message)
	}

	var fetched statusBody
	if err := c.getJSON(ctx, path, &fetched); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	resp, err = c.client.R().SetContext(ctx).Delete(path)
	if err := expectOK(resp, err); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (c *Checker) checkMetrics(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get(c.metricsPath)
	if err := expectOK(resp, err); err != nil {
		return err
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(resp.Body()))
	if err != nil {
		return fmt.Errorf("parse exposition: %w", err)
	}
	if _, ok := families[requiredFamily]; !ok {
		return fmt.Errorf("family %s missing from %d families", requiredFamily, len(families))
	}
	return nil
}

func (c *Checker) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.client.R().SetContext(ctx).SetResult(out).Get(path)
	return expectOK(resp, err)
}

func expectOK(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode(), resp.Request.URL)
	}
	return nil
}
