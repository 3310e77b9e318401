package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/profitfirst/internal/common"
)

// ValuesGetter fetches the raw cell values of a range.
type ValuesGetter interface {
	GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]any, error)
}

// Reader reads tracking-sheet rows.
type Reader struct {
	values ValuesGetter
	logger *slog.Logger
	config Config
}

// NewReader creates a reader backed by the Google Sheets API.
func NewReader(ctx context.Context, config Config, logger *slog.Logger) (*Reader, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewReaderWithValues(apiValues{srv: srv}, config, logger), nil
}

// NewReaderWithValues creates a reader over any ValuesGetter.
func NewReaderWithValues(values ValuesGetter, config Config, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Range == "" {
		config.Range = DefaultRange
	}
	return &Reader{values: values, config: config, logger: logger}
}

// ReadRows returns the rows of readRange, or of the configured range when
// readRange is empty, as trimmed strings. Transient API failures are retried.
func (r *Reader) ReadRows(ctx context.Context, readRange string) ([][]string, error) {
	if readRange == "" {
		readRange = r.config.Range
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  r.config.RetryAttempts,
		InitialDelay: r.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var raw [][]any
	err := common.WithRetry(ctx, func() error {
		values, err := r.values.GetValues(ctx, r.config.SpreadsheetID, readRange)
		if err != nil {
			return classifyAPIError(err)
		}
		raw = values
		return nil
	}, retryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}

	rows := make([][]string, len(raw))
	for i, row := range raw {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strings.TrimSpace(fmt.Sprint(v))
		}
		rows[i] = cells
	}

	r.logger.Info("read spreadsheet rows",
		"spreadsheet_id", r.config.SpreadsheetID,
		"range", readRange,
		"rows", len(rows))
	return rows, nil
}

// classifyAPIError marks rate limits and server errors as retryable and
// every other API error as final.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
	case apiErr.Code >= http.StatusInternalServerError:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}

// apiValues adapts the Sheets service to ValuesGetter.
type apiValues struct {
	srv *sheets.Service
}

func (a apiValues) GetValues(ctx context.Context, spreadsheetID, readRange string) ([][]any, error) {
	resp, err := a.srv.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// createSheetsService creates a read-only Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		// Use service account authentication
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		if token.RefreshToken == "" {
			saved, err := LoadToken(config.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("unable to load token file (run `profitfirst auth sheets` first): %w", err)
			}
			token = saved
		}

		tokenSource = oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}
