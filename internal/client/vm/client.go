// Package vm provides a client for the VictoriaMetrics/Prometheus query API.
package vm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"fleet-console/internal/config"
)

// Client is a client for the VictoriaMetrics/Prometheus API.
type Client struct {
	endpoint   string
	timeout    time.Duration
	retry      config.RetryConfig
	filter     *LabelFilter // applied to every query
	httpClient *resty.Client
	logger     zerolog.Logger
}

// NewClient creates a new VictoriaMetrics API client. Labels from cfg are
// injected into every query.
func NewClient(cfg *config.VictoriaMetricsConfig, retryCfg *config.RetryConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retry := config.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
	if retryCfg != nil {
		retry = *retryCfg
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.BaseDelay * 8).
		AddRetryCondition(retryCondition)

	return &Client{
		endpoint:   cfg.Endpoint,
		timeout:    timeout,
		retry:      retry,
		filter:     &LabelFilter{Labels: cfg.Labels},
		httpClient: httpClient,
		logger:     logger.With().Str("component", "vm-client").Logger(),
	}
}

// retryCondition retries on transport errors and 5xx responses, never on 4xx.
func retryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode() >= 500
}

// Query executes an instant query at /api/v1/query with the client's label filter.
func (c *Client) Query(ctx context.Context, query string) (*QueryResponse, error) {
	return c.QueryWithFilter(ctx, query, c.filter)
}

// QueryWithFilter executes an instant query with an explicit label filter.
func (c *Client) QueryWithFilter(ctx context.Context, query string, filter *LabelFilter) (*QueryResponse, error) {
	finalQuery := query
	if !filter.IsEmpty() {
		finalQuery = injectMatchersToQuery(query, filter.Matchers())
	}

	c.logger.Debug().
		Str("query", finalQuery).
		Msg("executing PromQL query")

	var result QueryResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("query", finalQuery).
		SetResult(&result).
		SetError(&result).
		Get("/api/v1/query")

	if err != nil {
		c.logger.Error().Err(err).Str("query", finalQuery).Msg("failed to execute query")
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("body", string(resp.Body())).
			Str("query", finalQuery).
			Msg("VM API returned non-200 status")
		return nil, fmt.Errorf("VM API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	if !result.IsSuccess() {
		c.logger.Error().
			Str("error_type", result.ErrorType).
			Str("error", result.Error).
			Str("query", finalQuery).
			Msg("VM API returned error")
		return nil, fmt.Errorf("VM API error [%s]: %s", result.ErrorType, result.Error)
	}

	if len(result.Warnings) > 0 {
		c.logger.Warn().
			Strs("warnings", result.Warnings).
			Str("query", finalQuery).
			Msg("VM API returned warnings")
	}

	c.logger.Debug().
		Str("result_type", result.Data.ResultType).
		Int("result_count", len(result.Data.Result)).
		Msg("query executed successfully")

	return &result, nil
}

// QueryResults executes an instant query and returns parsed, finite samples.
func (c *Client) QueryResults(ctx context.Context, query string) ([]QueryResult, error) {
	resp, err := c.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return ParseQueryResults(resp)
}

// QueryByLabel executes a query and groups the results by one label.
func (c *Client) QueryByLabel(ctx context.Context, query, label string) (map[string][]QueryResult, error) {
	results, err := c.QueryResults(ctx, query)
	if err != nil {
		return nil, err
	}
	return GroupResultsByLabel(results, label), nil
}

// promqlKeywords are identifiers that are never metric names.
var promqlKeywords = map[string]bool{
	"by": true, "without": true, "on": true, "ignoring": true,
	"group_left": true, "group_right": true, "bool": true, "offset": true,
	"and": true, "or": true, "unless": true, "atan2": true,
	"inf": true, "nan": true,
	// aggregation operators may be followed by a grouping clause instead of "("
	"sum": true, "min": true, "max": true, "avg": true, "group": true,
	"stddev": true, "stdvar": true, "count": true, "count_values": true,
	"bottomk": true, "topk": true, "quantile": true,
}

// groupingKeywords are followed by a parenthesised label list.
var groupingKeywords = map[string]bool{
	"by": true, "without": true, "on": true, "ignoring": true,
	"group_left": true, "group_right": true,
}

// injectMatchersToQuery adds label matchers to every metric selector of a
// PromQL expression. Function names, keywords, grouping label lists, string
// literals, durations and numbers are left untouched.
func injectMatchersToQuery(query string, matchers []string) string {
	if len(matchers) == 0 {
		return query
	}
	matcherStr := strings.Join(matchers, ", ")

	var sb strings.Builder
	skipLabelList := false
	n := len(query)

	for i := 0; i < n; {
		ch := query[i]
		if skipLabelList && ch != ' ' && ch != '(' {
			skipLabelList = false
		}

		switch {
		case ch == '"' || ch == '\'' || ch == '`':
			end := skipQuoted(query, i)
			sb.WriteString(query[i:end])
			i = end

		case ch == '[':
			end := indexFrom(query, i, ']')
			sb.WriteString(query[i:end])
			i = end

		case ch == '(' && skipLabelList:
			end := indexFrom(query, i, ')')
			sb.WriteString(query[i:end])
			i = end
			skipLabelList = false

		case ch == '{':
			end := skipBraces(query, i)
			existing := strings.TrimSpace(strings.TrimSuffix(query[i+1:end], "}"))
			if existing == "" {
				sb.WriteString("{" + matcherStr + "}")
			} else {
				sb.WriteString("{" + existing + ", " + matcherStr + "}")
			}
			i = end

		case isIdentStart(ch) && (i == 0 || !isNumberChar(query[i-1])):
			j := i + 1
			for j < n && isIdentChar(query[j]) {
				j++
			}
			ident := query[i:j]
			k := j
			for k < n && query[k] == ' ' {
				k++
			}

			lower := strings.ToLower(ident)
			switch {
			case promqlKeywords[lower]:
				skipLabelList = groupingKeywords[lower]
				sb.WriteString(ident)
			case k < n && (query[k] == '(' || query[k] == '{'):
				// function call, or a selector whose braces are merged above
				sb.WriteString(ident)
			default:
				sb.WriteString(ident + "{" + matcherStr + "}")
			}
			i = j

		default:
			sb.WriteByte(ch)
			i++
		}
	}

	return sb.String()
}

// skipQuoted returns the index just past the string literal starting at i.
func skipQuoted(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] == '\\' && quote != '`' {
			j++
			continue
		}
		if s[j] == quote {
			return j + 1
		}
	}
	return len(s)
}

// skipBraces returns the index just past the label selector starting at i.
func skipBraces(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '"', '\'', '`':
			j = skipQuoted(s, j) - 1
		case '}':
			return j + 1
		}
	}
	return len(s)
}

// indexFrom returns the index just past the first c at or after i.
func indexFrom(s string, i int, c byte) int {
	if k := strings.IndexByte(s[i:], c); k >= 0 {
		return i + k + 1
	}
	return len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == ':' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isNumberChar(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.'
}
