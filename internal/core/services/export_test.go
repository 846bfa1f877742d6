package services

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openair-labs/awair-export/internal/core/domain"
	"github.com/openair-labs/awair-export/internal/logger"
)

// fakeResourceClient is a test double for driven.ResourceClient.
type fakeResourceClient struct {
	paths []string
	creds []domain.Credential
	body  []byte
	err   error
}

func (f *fakeResourceClient) Get(_ context.Context, path string, cred domain.Credential) ([]byte, error) {
	f.paths = append(f.paths, path)
	f.creds = append(f.creds, cred)
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func newExportService(api *fakeResourceClient) *ExportService {
	return NewExportService(api, NewTokenRefresher(&fakeTokenEndpoint{}))
}

var validCred = domain.Credential{
	AccessToken: "access-1",
	TokenType:   "Bearer",
	ExpiresAt:   time.Now().Add(time.Hour),
}

func TestListDevices(t *testing.T) {
	api := &fakeResourceClient{
		body: []byte(`{"devices":[
			{"deviceId":12345,"deviceUUID":"awair-element_12345","deviceType":"awair-element","name":"Bedroom"},
			{"deviceUUID":"awair_999","deviceType":"awair","name":""}
		]}`),
	}
	svc := newExportService(api)

	devices, _, err := svc.ListDevices(context.Background(), testApp, validCred)
	require.NoError(t, err)

	require.Len(t, devices, 2)
	assert.Equal(t, domain.Device{ID: "12345", Type: "awair-element", Name: "Bedroom"}, devices[0])
	// Falls back to the UUID when no numeric id is present.
	assert.Equal(t, "awair_999", devices[1].ID)
	assert.Equal(t, []string{"/v1/users/self/devices"}, api.paths)
}

func TestListDevices_EmptyIsValid(t *testing.T) {
	api := &fakeResourceClient{body: []byte(`{"devices":[]}`)}
	svc := newExportService(api)

	devices, _, err := svc.ListDevices(context.Background(), testApp, validCred)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestListDevices_MalformedBody(t *testing.T) {
	api := &fakeResourceClient{body: []byte(`<html>not json</html>`)}
	svc := newExportService(api)

	_, _, err := svc.ListDevices(context.Background(), testApp, validCred)

	var malformed *domain.MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Raw, "not json")
}

func TestListDevices_APIErrorPropagates(t *testing.T) {
	api := &fakeResourceClient{err: &domain.APIError{Status: 401, Path: "/v1/users/self/devices"}}
	svc := newExportService(api)

	_, _, err := svc.ListDevices(context.Background(), testApp, validCred)

	assert.True(t, domain.IsUnauthorized(err))
}

func TestFetchSamples_RequestWindow(t *testing.T) {
	api := &fakeResourceClient{body: []byte(`{"data":[]}`)}
	svc := newExportService(api)
	device := domain.Device{ID: "12345", Type: "awair-element"}

	// Any instant within the day maps to the same UTC midnight window.
	day := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	_, _, err := svc.FetchSamples(context.Background(), testApp, validCred, device, day, domain.UnitCelsius)
	require.NoError(t, err)

	require.Len(t, api.paths, 1)
	parsed, err := url.Parse(api.paths[0])
	require.NoError(t, err)
	assert.Equal(t, "/v1/users/self/devices/awair-element/12345/air-data/5-min-avg", parsed.Path)

	query := parsed.Query()
	assert.Equal(t, "2026-03-14T00:00:00Z", query.Get("from"))
	assert.Equal(t, "2026-03-15T00:00:00Z", query.Get("to"))
	assert.Equal(t, "288", query.Get("limit"))
	assert.Equal(t, "false", query.Get("desc"))
	assert.Equal(t, "false", query.Get("fahrenheit"))
}

func TestFetchSamples_FahrenheitFlag(t *testing.T) {
	api := &fakeResourceClient{body: []byte(`{"data":[]}`)}
	svc := newExportService(api)
	device := domain.Device{ID: "1", Type: "awair"}

	_, _, err := svc.FetchSamples(context.Background(), testApp, validCred, device,
		time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), domain.UnitFahrenheit)
	require.NoError(t, err)

	parsed, err := url.Parse(api.paths[0])
	require.NoError(t, err)
	assert.Equal(t, "true", parsed.Query().Get("fahrenheit"))
}

func TestFetchSamples_Mapping(t *testing.T) {
	api := &fakeResourceClient{
		body: []byte(`{"data":[
			{"timestamp":"2026-03-14T00:00:00.000Z","score":87.2,"sensors":[
				{"comp":"temp","value":21.456},
				{"comp":"co2","value":512.4}
			]},
			{"timestamp":"2026-03-14T00:05:00.000Z","score":88.0,"sensors":[]}
		]}`),
	}
	svc := newExportService(api)

	samples, _, err := svc.FetchSamples(context.Background(), testApp, validCred,
		domain.Device{ID: "1", Type: "awair"}, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), domain.UnitCelsius)
	require.NoError(t, err)

	require.Len(t, samples, 2)
	assert.Equal(t, "2026-03-14T00:00:00.000Z", samples[0].Timestamp)
	assert.InDelta(t, 87.2, samples[0].Score, 1e-9)
	assert.InDelta(t, 21.456, samples[0].Sensors[domain.SensorTemp], 1e-9)
	assert.InDelta(t, 512.4, samples[0].Sensors[domain.SensorCO2], 1e-9)
	assert.Empty(t, samples[1].Sensors)
}

func TestProfile_Passthrough(t *testing.T) {
	api := &fakeResourceClient{body: []byte(`{"email":"user@example.com"}`)}
	svc := newExportService(api)

	raw, _, err := svc.Profile(context.Background(), testApp, validCred)
	require.NoError(t, err)

	assert.JSONEq(t, `{"email":"user@example.com"}`, string(raw))
	assert.Equal(t, []string{"/v1/users/self"}, api.paths)
}

func TestColumns(t *testing.T) {
	assert.Equal(t,
		[]string{"timestamp", "score", "temp", "humid", "co2", "voc", "pm25"},
		Columns(false))
	assert.Equal(t,
		[]string{"timestamp", "score", "temp", "humid", "co2", "voc", "pm25", "lux", "spl_a"},
		Columns(true))
}

func TestBuildTable_RowPerSample(t *testing.T) {
	samples := []domain.Sample{
		{Timestamp: "2026-03-14T00:00:00.000Z", Score: 87},
		{Timestamp: "2026-03-14T00:05:00.000Z", Score: 88},
		{Timestamp: "2026-03-14T00:10:00.000Z", Score: 89},
	}

	table := BuildTable(samples, false)

	require.Len(t, table.Rows, len(samples))
	for _, row := range table.Rows {
		assert.Len(t, row, len(table.Columns))
	}
	// Row order mirrors sample order.
	assert.Equal(t, "2026-03-14T00:00:00.000Z", table.Rows[0][0])
	assert.Equal(t, "2026-03-14T00:10:00.000Z", table.Rows[2][0])
}

func TestBuildTable_FormattingAndAlignment(t *testing.T) {
	samples := []domain.Sample{{
		Timestamp: "2026-03-14T00:00:00.000Z",
		Score:     87.5,
		Sensors: map[domain.SensorKind]float64{
			domain.SensorTemp: 21.456,
			domain.SensorCO2:  512,
		},
	}}

	table := BuildTable(samples, false)

	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	// timestamp,score,temp,humid,co2,voc,pm25
	assert.Equal(t, "2026-03-14T00:00:00.000Z", row[0])
	assert.Equal(t, "88", row[1])
	assert.Equal(t, "21.46", row[2])
	assert.Equal(t, "", row[3], "missing humid is an empty cell, not zero")
	assert.Equal(t, "512", row[4])
	assert.Equal(t, "", row[5])
	assert.Equal(t, "", row[6])
}

func TestBuildTable_ExtendedColumns(t *testing.T) {
	samples := []domain.Sample{{
		Timestamp: "2026-03-14T00:00:00.000Z",
		Score:     90,
		Sensors: map[domain.SensorKind]float64{
			domain.SensorLux:  120.7,
			domain.SensorSPLA: 43.2,
		},
	}}

	table := BuildTable(samples, true)

	row := table.Rows[0]
	require.Len(t, row, 9)
	assert.Equal(t, "121", row[7])
	assert.Equal(t, "43", row[8])
}

func TestBuildTable_UnknownSensorSkippedWithWarning(t *testing.T) {
	defer logger.SetOutput(os.Stderr)
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	samples := []domain.Sample{{
		Timestamp: "2026-03-14T00:00:00.000Z",
		Score:     80,
		Sensors: map[domain.SensorKind]float64{
			"ch4":             12.5,
			domain.SensorTemp: 20,
		},
	}}

	table := BuildTable(samples, false)

	require.Len(t, table.Rows, 1)
	assert.Len(t, table.Rows[0], 7, "unknown kind must not shift columns")
	assert.Equal(t, "20.00", table.Rows[0][2])
	assert.Contains(t, buf.String(), `unknown sensor kind "ch4"`)
}

func TestSerializeCSV_HeaderOnlyForZeroSamples(t *testing.T) {
	out := SerializeCSV(BuildTable(nil, false))

	assert.Equal(t, "\"timestamp\",\"score\",\"temp\",\"humid\",\"co2\",\"voc\",\"pm25\"\r\n", string(out))
	assert.Equal(t, 1, strings.Count(string(out), "\r\n"))
}

func TestSerializeCSV_LineCount(t *testing.T) {
	samples := []domain.Sample{
		{Timestamp: "t1", Score: 1},
		{Timestamp: "t2", Score: 2},
	}

	out := string(SerializeCSV(BuildTable(samples, false)))

	assert.Equal(t, len(samples)+1, strings.Count(out, "\r\n"))
}

func TestSerializeCSV_AllFieldsQuoted(t *testing.T) {
	table := domain.Table{
		Columns: []string{"a", "b"},
		Rows:    [][]string{{`say "hi"`, ""}},
	}

	out := string(SerializeCSV(table))

	assert.Equal(t, "\"a\",\"b\"\r\n\"say \"\"hi\"\"\",\"\"\r\n", out)
}

func TestSerializeCSV_Deterministic(t *testing.T) {
	samples := []domain.Sample{{
		Timestamp: "2026-03-14T00:00:00.000Z",
		Score:     87,
		Sensors: map[domain.SensorKind]float64{
			domain.SensorTemp:  21.4,
			domain.SensorHumid: 40.1,
			domain.SensorCO2:   600,
			domain.SensorVOC:   220,
			domain.SensorPM25:  8,
		},
	}}

	first := SerializeCSV(BuildTable(samples, false))
	second := SerializeCSV(BuildTable(samples, false))

	assert.Equal(t, first, second)
}

func TestExportDay_AbortsOnFetchFailure(t *testing.T) {
	api := &fakeResourceClient{err: &domain.APIError{Status: 500, Body: "boom"}}
	svc := newExportService(api)

	out, _, err := svc.ExportDay(context.Background(), testApp, validCred,
		domain.Device{ID: "1", Type: "awair"}, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		domain.UnitCelsius, false)

	require.Error(t, err)
	assert.Nil(t, out, "a failed fetch must never produce a truncated CSV")
}

func TestExportDay_RefreshesExpiredCredentialFirst(t *testing.T) {
	now := time.Now()
	endpoint := &fakeTokenEndpoint{
		refreshCred: domain.Credential{
			AccessToken:  "access-2",
			RefreshToken: "refresh-2",
			ExpiresAt:    now.Add(time.Hour),
		},
	}
	api := &fakeResourceClient{body: []byte(`{"data":[]}`)}
	svc := NewExportService(api, NewTokenRefresher(endpoint))

	expired := domain.Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    now.Add(-time.Minute),
	}

	out, cred, err := svc.ExportDay(context.Background(), testApp, expired,
		domain.Device{ID: "1", Type: "awair"}, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		domain.UnitCelsius, false)
	require.NoError(t, err)

	assert.Equal(t, 1, endpoint.refreshCalls)
	assert.Equal(t, "access-2", cred.AccessToken)
	// The resource call used the refreshed credential.
	require.Len(t, api.creds, 1)
	assert.Equal(t, "access-2", api.creds[0].AccessToken)
	assert.NotNil(t, out)
}
