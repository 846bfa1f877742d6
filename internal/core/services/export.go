package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openair-labs/awair-export/internal/core/domain"
	"github.com/openair-labs/awair-export/internal/core/ports/driven"
	"github.com/openair-labs/awair-export/internal/logger"
)

// SampleLimit is the page limit for one day of 5-minute averages
// (24h * 12 samples/hour). One call satisfies one day's window; multi-day
// exports are composed by the caller, one call per day.
const SampleLimit = 288

// sensorColumns is the fixed column order for sensor values. The first five
// are always emitted; lux and spl_a only when extended columns are requested.
var sensorColumns = []domain.SensorKind{
	domain.SensorTemp,
	domain.SensorHumid,
	domain.SensorCO2,
	domain.SensorVOC,
	domain.SensorPM25,
	domain.SensorLux,
	domain.SensorSPLA,
}

// Columns returns the export column set, "timestamp" and "score" followed by
// the sensor columns.
func Columns(extended bool) []string {
	kinds := sensorKinds(extended)
	cols := make([]string, 0, 2+len(kinds))
	cols = append(cols, "timestamp", "score")
	for _, k := range kinds {
		cols = append(cols, string(k))
	}
	return cols
}

func sensorKinds(extended bool) []domain.SensorKind {
	if extended {
		return sensorColumns
	}
	return sensorColumns[:5]
}

// ExportService orchestrates device enumeration, windowed sample retrieval,
// sensor-to-column mapping and CSV serialization. All resource calls route
// through the refresher's EnsureValid first, and every method hands back the
// (possibly refreshed) credential for the caller to keep.
type ExportService struct {
	api       driven.ResourceClient
	refresher *TokenRefresher
}

// NewExportService creates an export service over the given resource client
// and token refresher.
func NewExportService(api driven.ResourceClient, refresher *TokenRefresher) *ExportService {
	return &ExportService{
		api:       api,
		refresher: refresher,
	}
}

// Wire shapes for the Awair resource endpoints. Validated here, at the API
// boundary, instead of being accessed ad hoc downstream.
type wireDeviceList struct {
	Devices []wireDevice `json:"devices"`
}

type wireDevice struct {
	DeviceID   json.Number `json:"deviceId"`
	DeviceUUID string      `json:"deviceUUID"`
	DeviceType string      `json:"deviceType"`
	Name       string      `json:"name"`
}

type wireSampleWindow struct {
	Data []wireSample `json:"data"`
}

type wireSample struct {
	Timestamp string       `json:"timestamp"`
	Score     float64      `json:"score"`
	Sensors   []wireSensor `json:"sensors"`
}

type wireSensor struct {
	Comp  string  `json:"comp"`
	Value float64 `json:"value"`
}

// ListDevices fetches the user's devices. The list is fetched fresh on every
// call and never cached: devices can be added or removed at any time. An
// empty result is valid, not an error.
func (s *ExportService) ListDevices(ctx context.Context, app domain.OAuthApp, cred domain.Credential) ([]domain.Device, domain.Credential, error) {
	cred, err := s.refresher.EnsureValid(ctx, app, cred)
	if err != nil {
		return nil, cred, err
	}

	body, err := s.api.Get(ctx, "/v1/users/self/devices", cred)
	if err != nil {
		return nil, cred, fmt.Errorf("list devices: %w", err)
	}

	var list wireDeviceList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, cred, &domain.MalformedResponseError{Raw: string(body), Err: err}
	}

	devices := make([]domain.Device, 0, len(list.Devices))
	for _, d := range list.Devices {
		id := d.DeviceID.String()
		if id == "" {
			id = d.DeviceUUID
		}
		devices = append(devices, domain.Device{
			ID:   id,
			Type: d.DeviceType,
			Name: d.Name,
		})
	}
	return devices, cred, nil
}

// FetchSamples retrieves one calendar day of 5-minute-average samples for a
// device. The window is [midnight, midnight+24h) UTC of the given day, in
// ascending chronological order so that CSV output is reproducible.
func (s *ExportService) FetchSamples(
	ctx context.Context,
	app domain.OAuthApp,
	cred domain.Credential,
	device domain.Device,
	day time.Time,
	unit domain.TemperatureUnit,
) ([]domain.Sample, domain.Credential, error) {
	cred, err := s.refresher.EnsureValid(ctx, app, cred)
	if err != nil {
		return nil, cred, err
	}

	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	params := url.Values{
		"from":       {from.Format(time.RFC3339)},
		"to":         {to.Format(time.RFC3339)},
		"limit":      {strconv.Itoa(SampleLimit)},
		"desc":       {"false"},
		"fahrenheit": {strconv.FormatBool(unit == domain.UnitFahrenheit)},
	}
	path := fmt.Sprintf("/v1/users/self/devices/%s/air-data/5-min-avg?%s", device.Ref(), params.Encode())

	body, err := s.api.Get(ctx, path, cred)
	if err != nil {
		return nil, cred, fmt.Errorf("fetch samples for %s: %w", device.Ref(), err)
	}

	var window wireSampleWindow
	if err := json.Unmarshal(body, &window); err != nil {
		return nil, cred, &domain.MalformedResponseError{Raw: string(body), Err: err}
	}

	samples := make([]domain.Sample, 0, len(window.Data))
	for _, w := range window.Data {
		sample := domain.Sample{
			Timestamp: w.Timestamp,
			Score:     w.Score,
			Sensors:   make(map[domain.SensorKind]float64, len(w.Sensors)),
		}
		for _, sensor := range w.Sensors {
			sample.Sensors[domain.SensorKind(sensor.Comp)] = sensor.Value
		}
		samples = append(samples, sample)
	}
	return samples, cred, nil
}

// Profile fetches the authenticated user's profile as opaque JSON. Useful as
// a cheap "is this credential accepted" probe.
func (s *ExportService) Profile(ctx context.Context, app domain.OAuthApp, cred domain.Credential) (json.RawMessage, domain.Credential, error) {
	cred, err := s.refresher.EnsureValid(ctx, app, cred)
	if err != nil {
		return nil, cred, err
	}

	body, err := s.api.Get(ctx, "/v1/users/self", cred)
	if err != nil {
		return nil, cred, fmt.Errorf("fetch profile: %w", err)
	}
	return json.RawMessage(body), cred, nil
}

// BuildTable maps samples onto the fixed column set, one row per sample in
// input order.
//
// Timestamps are copied verbatim (re-parsing would risk timezone drift).
// The score and whole-number sensors render as integers, temp and humid with
// two decimal places. A sample missing a recognized sensor leaves that cell
// empty, never zero, so the column count stays fixed. Unknown sensor kinds
// are logged and skipped; they never abort an export or shift columns.
func BuildTable(samples []domain.Sample, extended bool) domain.Table {
	kinds := sensorKinds(extended)
	table := domain.Table{
		Columns: Columns(extended),
		Rows:    make([][]string, 0, len(samples)),
	}

	warned := make(map[domain.SensorKind]bool)
	for _, sample := range samples {
		row := make([]string, 0, len(table.Columns))
		row = append(row, sample.Timestamp)
		row = append(row, strconv.Itoa(int(math.Round(sample.Score))))
		for _, kind := range kinds {
			value, ok := sample.Sensors[kind]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatSensorValue(kind, value))
		}

		for kind := range sample.Sensors {
			if !kind.Recognized() && !warned[kind] {
				logger.Warn("skipping unknown sensor kind %q", string(kind))
				warned[kind] = true
			}
		}

		table.Rows = append(table.Rows, row)
	}
	return table
}

// formatSensorValue renders a sensor reading for its column. Temperature and
// humidity carry sub-degree/percent precision; the rest are reported by the
// provider as whole-number concentrations or levels.
func formatSensorValue(kind domain.SensorKind, value float64) string {
	switch kind {
	case domain.SensorTemp, domain.SensorHumid:
		return strconv.FormatFloat(value, 'f', 2, 64)
	default:
		return strconv.Itoa(int(math.Round(value)))
	}
}

// SerializeCSV encodes the table RFC-4180 style: every field quoted, comma
// delimited, CRLF line endings, header row first. Output is deterministic
// byte-for-byte for a given table.
func SerializeCSV(table domain.Table) []byte {
	var b strings.Builder
	writeRow(&b, table.Columns)
	for _, row := range table.Rows {
		writeRow(&b, row)
	}
	return []byte(b.String())
}

func writeRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
}

// ExportDay composes the single-day pipeline: fetch the window, build the
// table, serialize it. Any fetch failure aborts the whole export; a
// truncated CSV is never produced.
func (s *ExportService) ExportDay(
	ctx context.Context,
	app domain.OAuthApp,
	cred domain.Credential,
	device domain.Device,
	day time.Time,
	unit domain.TemperatureUnit,
	extended bool,
) ([]byte, domain.Credential, error) {
	samples, cred, err := s.FetchSamples(ctx, app, cred, device, day, unit)
	if err != nil {
		return nil, cred, err
	}
	logger.Debug("fetched %d samples for %s", len(samples), device.Ref())
	return SerializeCSV(BuildTable(samples, extended)), cred, nil
}
