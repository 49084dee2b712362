package warehouse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplook/internal/typemap"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// DefaultBigQueryEndpoint is the BigQuery REST API base URL.
const DefaultBigQueryEndpoint = "https://bigquery.googleapis.com/bigquery/v2"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

var (
	tableRefPath   = jp.MustParseString("$.tableReference")
	fieldsPath     = jp.MustParseString("$.schema.fields")
	clusteringPath = jp.MustParseString("$.clustering.fields[*]")
	descPath       = jp.MustParseString("$.description")
	labelsPath     = jp.MustParseString("$.labels")
	tableIDsPath   = jp.MustParseString("$.tables[*].tableReference.tableId")
	pageTokenPath  = jp.MustParseString("$.nextPageToken")
)

func init() {
	Register("bigquery", func(cfg core.SourceConfig, logger *slog.Logger) (Source, error) {
		return NewBigQuery(cfg.Endpoint, cfg.Token, nil, logger), nil
	})
}

// BigQuery reads table resources from the BigQuery REST API.
type BigQuery struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// NewBigQuery creates a REST source. An empty endpoint uses the public API,
// a nil client uses http.DefaultClient and an empty token sends no
// Authorization header.
func NewBigQuery(endpoint, token string, client *http.Client, logger *slog.Logger) *BigQuery {
	if endpoint == "" {
		endpoint = DefaultBigQueryEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BigQuery{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		client:   client,
		logger:   logger,
	}
}

// Dialect implements Source.
func (b *BigQuery) Dialect() string { return typemap.BigQuery }

// Close implements Source.
func (b *BigQuery) Close() error { return nil }

// FetchTable implements Source.
func (b *BigQuery) FetchTable(ctx context.Context, ref core.TableRef) (*core.RawTable, error) {
	u := fmt.Sprintf("%s/projects/%s/datasets/%s/tables/%s", b.endpoint,
		url.PathEscape(ref.Project), url.PathEscape(ref.Dataset), url.PathEscape(ref.Table))

	body, err := b.get(ctx, u)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, notFound(ref)
		}
		return nil, fmt.Errorf("fetching %s: %w", ref, err)
	}
	table, err := ParseTable(body, ref)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ref, err)
	}
	return table, nil
}

// ListTables implements Source, following page tokens until exhausted.
func (b *BigQuery) ListTables(ctx context.Context, project, dataset string) ([]string, error) {
	base := fmt.Sprintf("%s/projects/%s/datasets/%s/tables", b.endpoint,
		url.PathEscape(project), url.PathEscape(dataset))

	var tables []string
	pageToken := ""
	for {
		q := url.Values{"maxResults": {"1000"}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		body, err := b.get(ctx, base+"?"+q.Encode())
		if err != nil {
			if isStatus(err, http.StatusNotFound) {
				return nil, fmt.Errorf("%s.%s: %w", project, dataset, ErrDatasetNotFound)
			}
			return nil, fmt.Errorf("listing %s.%s: %w", project, dataset, err)
		}
		doc, err := oj.Parse(body)
		if err != nil {
			return nil, fmt.Errorf("listing %s.%s: %w", project, dataset, err)
		}
		for _, id := range tableIDsPath.Get(doc) {
			if s, ok := id.(string); ok {
				tables = append(tables, s)
			}
		}
		pageToken, _ = pageTokenPath.First(doc).(string)
		if pageToken == "" {
			break
		}
	}
	sort.Strings(tables)
	b.logger.Debug("listed tables",
		slog.String("dataset", project+"."+dataset),
		slog.Int("count", len(tables)))
	return tables, nil
}

func (b *BigQuery) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// APIError is a non-200 response from the BigQuery API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bigquery API returned %d: %s", e.StatusCode, e.Body)
}

func isStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// ParseTable reads a BigQuery table resource. Reference parts missing from
// the document are taken from fallback.
func ParseTable(data []byte, fallback core.TableRef) (*core.RawTable, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid table JSON: %w", err)
	}

	table := &core.RawTable{Ref: fallback}
	if ref, ok := tableRefPath.First(doc).(map[string]any); ok {
		table.Ref.Project = stringOr(ref["projectId"], fallback.Project)
		table.Ref.Dataset = stringOr(ref["datasetId"], fallback.Dataset)
		table.Ref.Table = stringOr(ref["tableId"], fallback.Table)
	}
	if table.Ref.Table == "" {
		return nil, fmt.Errorf("table resource has no tableReference.tableId")
	}

	rawFields, ok := fieldsPath.First(doc).([]any)
	if !ok {
		return nil, &core.SchemaError{Table: table.Ref.Table, Msg: "table resource has no schema.fields"}
	}
	if table.Fields, err = parseFields(rawFields, ""); err != nil {
		return nil, &core.SchemaError{Table: table.Ref.Table, Msg: err.Error()}
	}

	for _, c := range clusteringPath.Get(doc) {
		if s, ok := c.(string); ok {
			table.Clustering = append(table.Clustering, s)
		}
	}
	table.Description, _ = descPath.First(doc).(string)
	if labels, ok := labelsPath.First(doc).(map[string]any); ok {
		table.Labels = make(map[string]string, len(labels))
		for k, v := range labels {
			table.Labels[k], _ = v.(string)
		}
	}
	return table, nil
}

func parseFields(items []any, prefix string) ([]core.RawField, error) {
	fields := make([]core.RawField, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %d under %q is not an object", i, prefix)
		}
		f := core.RawField{
			Name:        stringOr(m["name"], ""),
			Type:        stringOr(m["type"], ""),
			Mode:        core.Mode(stringOr(m["mode"], "")),
			Description: stringOr(m["description"], ""),
		}
		if children, ok := m["fields"].([]any); ok {
			var err error
			if f.Fields, err = parseFields(children, prefix+f.Name+"."); err != nil {
				return nil, err
			}
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
