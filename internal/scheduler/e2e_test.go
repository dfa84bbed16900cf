package scheduler_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/envmon/internal/clock"
	"codeberg.org/mutker/envmon/internal/exposition"
	"codeberg.org/mutker/envmon/internal/feed"
	"codeberg.org/mutker/envmon/internal/liveness"
	"codeberg.org/mutker/envmon/internal/measurement"
	"codeberg.org/mutker/envmon/internal/platform"
	"codeberg.org/mutker/envmon/internal/scheduler"
	"codeberg.org/mutker/envmon/internal/sensor"
	"codeberg.org/mutker/envmon/internal/sensor/sensortest"
	"codeberg.org/mutker/envmon/internal/server"
	"codeberg.org/mutker/envmon/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hostStub struct{}

func (hostStub) CPUs() ([]platform.CPU, error) {
	return []platform.CPU{{ID: "0", Temperature: 47.5, HasTemperature: true}}, nil
}

func (hostStub) DeviceInfo() (measurement.Labels, error) {
	return measurement.Pairs(measurement.LabelBoardID, "test"), nil
}

type scrapeResult struct {
	status      int
	contentType string
	body        string
	err         error
}

func TestScrapeEndToEnd(t *testing.T) {
	clk := clock.Fake(time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC))
	stub := sensortest.NewStub(21.0, 45.0, 1012.34)
	b := &sensortest.Bus{}

	metrics, err := telemetry.New()
	require.NoError(t, err)

	manager := sensor.NewManager(b.Opener(), []sensor.Kind{sensortest.Kind("stub", stub)}, clk,
		sensor.WithObserver(metrics))
	manager.Initialize()
	defer manager.Close()

	srv := server.New(server.DefaultConfig(), server.WithObserver(metrics))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	s := scheduler.New(scheduler.DefaultConfig(), manager, srv, feed.NewBuilder(manager, hostStub{}, clk),
		&fakeDisplay{}, liveness.Noop{}, clk, scheduler.WithMetrics(metrics))

	results := make(chan scrapeResult, 1)
	go func() {
		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			results <- scrapeResult{err: err}
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		results <- scrapeResult{
			status:      resp.StatusCode,
			contentType: resp.Header.Get("Content-Type"),
			body:        string(body),
			err:         err,
		}
	}()

	var res scrapeResult
	deadline := time.After(5 * time.Second)
loop:
	for {
		require.NoError(t, s.Tick())
		select {
		case res = <-results:
			break loop
		case <-deadline:
			t.Fatal("scrape was never served")
		case <-time.After(time.Millisecond):
		}
	}

	require.NoError(t, res.err)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, exposition.ContentType, res.contentType)
	assert.Contains(t, res.body, "sensor_temperature_celsius{sensor_type=\"stub\"} 21.000\n")
	assert.Contains(t, res.body, "sensor_humidity_percent{sensor_type=\"stub\"} 45.000\n")
	assert.Contains(t, res.body, "sensor_pressure_hpa{sensor_type=\"stub\"} 1012.340\n")
	assert.Contains(t, res.body, "microcontroller_cpu_temperature_celsius{cpu=\"0\"} 47.500\n")
	assert.Contains(t, res.body, "microcontroller_info{board_id=\"test\"} 1.000\n")

	infoLines := 0
	for _, line := range strings.Split(res.body, "\n") {
		if strings.HasPrefix(line, measurement.NameSensorInfo+"{") {
			infoLines++
		}
	}
	assert.Equal(t, 1, infoLines)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agent/metrics", nil))
	assert.Contains(t, rec.Body.String(), "envmon_scrapes_total 1\n")
}
