// Package google reads spreadsheet exports straight from Google Sheets, so
// timecard and expenditure dumps can be imported without a file roundtrip.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"vmb/internal/tabular"
)

type Source struct {
	svc           *gsheet.Service
	spreadsheetID string
	ranges        []string
}

var _ tabular.Source = (*Source)(nil)

// NewFromEnv creates a Sheets-backed source.
// Required: GOOGLE_SPREADSHEET_ID and GOOGLE_SHEET_RANGES (comma-separated
// A1 ranges, e.g. "Timecards!A:K").
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON / GOOGLE_SERVICE_ACCOUNT_FILE /
// GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client+token pair written by
// cmd/oauth-init (GOOGLE_OAUTH_CLIENT_FILE + GOOGLE_OAUTH_TOKEN_FILE).
func NewFromEnv(ctx context.Context) (*Source, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	rangesEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_RANGES"))
	if rangesEnv == "" {
		return nil, errors.New("missing GOOGLE_SHEET_RANGES")
	}
	var ranges []string
	for _, r := range strings.Split(rangesEnv, ",") {
		if r = strings.TrimSpace(r); r != "" {
			ranges = append(ranges, r)
		}
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Source{svc: svc, spreadsheetID: spreadsheetID, ranges: ranges}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	if svc, ok, err := oauthService(ctx); ok {
		return svc, err
	}

	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing Google credentials (service account or OAuth client/token)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

// oauthService builds a service from the OAuth client/token pair produced by
// cmd/oauth-init. ok is false when no OAuth configuration is present.
func oauthService(ctx context.Context) (*gsheet.Service, bool, error) {
	clientFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
	tokenFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))
	if clientFile == "" || tokenFile == "" {
		return nil, false, nil
	}

	clientJSON, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, true, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, true, fmt.Errorf("parse oauth client: %w", err)
	}

	tokenJSON, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, true, fmt.Errorf("read oauth token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, true, fmt.Errorf("parse oauth token: %w", err)
	}

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, &tok)))
	if err != nil {
		return nil, true, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, true, nil
}

func (s *Source) Tables(ctx context.Context) ([]tabular.Table, error) {
	tables := make([]tabular.Table, 0, len(s.ranges))
	for _, rng := range s.ranges {
		resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get range %s: %w", rng, err)
		}
		t := tabular.Table{Name: rng, Origin: s.spreadsheetID}
		if len(resp.Values) > 0 {
			t.Columns = toStrings(resp.Values[0])
			for _, row := range resp.Values[1:] {
				t.Rows = append(t.Rows, toStrings(row))
			}
		}
		slog.InfoContext(ctx, "Fetched sheet range", "range", rng, "rows", len(t.Rows))
		tables = append(tables, t)
	}
	return tables, nil
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}
