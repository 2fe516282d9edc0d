package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/orbit/internal/app"
	"github.com/ayusman/orbit/internal/capture"
	"github.com/ayusman/orbit/internal/config"
	"github.com/ayusman/orbit/internal/control"
	"github.com/ayusman/orbit/internal/detector"
	"github.com/ayusman/orbit/internal/server"
	"github.com/ayusman/orbit/internal/store"
	"github.com/ayusman/orbit/internal/tracking"
)

type harness struct {
	store  *store.Store
	app    *app.App
	det    *detector.MockDetector
	ts     *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	det := detector.NewMockDetector()
	a, err := app.New(app.Config{
		Settings: config.Default(),
		Store:    s,
		Camera:   capture.NewMockCamera(nil, true),
		Detector: det,
	})
	require.NoError(t, err)

	srv := server.New(server.Config{App: a, Store: s})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &harness{store: s, app: a, det: det, ts: ts, client: ts.Client()}
}

func (h *harness) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// sweep is a hand path with a dropout and a pinch that opens over time.
func sweep(base time.Time, i int) control.Input {
	in := control.Input{Time: base.Add(time.Duration(i) * 33 * time.Millisecond)}
	if i%40 != 39 {
		in.Control = &control.Point{X: 180 + 4*float64(i), Y: 300 - 2*float64(i%11)}
	}
	if i >= 5 {
		in.Pinch = &control.Pinch{
			Thumb: control.Point{X: 480, Y: 260},
			Index: control.Point{X: 480 + 1.5*float64(i), Y: 260},
		}
	}
	return in
}

func TestE2E_ModeSwitchRecordReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	h := newHarness(t)

	var mode struct {
		Mode int    `json:"mode"`
		Name string `json:"name"`
	}
	decode(t, h.do(t, http.MethodGet, "/api/mode", ""), &mode)
	assert.Equal(t, "smoothed", mode.Name)

	resp := h.do(t, http.MethodPost, "/api/recording", `{"name": "sweep"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sess store.Session
	decode(t, resp, &sess)

	base := time.Now()
	const n = 120
	live := make([]control.Pose, 0, n)
	for i := 0; i < n; i++ {
		switch i {
		case 30:
			resp := h.do(t, http.MethodPost, "/api/mode", `{"mode": "kalman"}`)
			require.Equal(t, http.StatusOK, resp.StatusCode)
		case 70:
			resp := h.do(t, http.MethodPost, "/api/mode", `{"mode": 1}`)
			require.Equal(t, http.StatusOK, resp.StatusCode)
		case 90:
			resp := h.do(t, http.MethodPost, "/api/mode", `{"mode": 42}`)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		}
		live = append(live, h.app.Process(sweep(base, i)))
	}

	resp = h.do(t, http.MethodDelete, "/api/recording", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var finished store.Session
	decode(t, resp, &finished)
	require.Equal(t, n, finished.Frames)

	t.Run("replay follows recorded modes", func(t *testing.T) {
		resp := h.do(t, http.MethodPost, "/api/sessions/"+sess.ID+"/replay", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var res app.ReplayResult
		decode(t, resp, &res)

		require.Len(t, res.Poses, n)
		for i := range live {
			assert.InDelta(t, live[i].RotX, res.Poses[i].RotX, 1e-6, "tick %d", i)
			assert.InDelta(t, live[i].RotY, res.Poses[i].RotY, 1e-6, "tick %d", i)
			assert.InDelta(t, live[i].Scale, res.Poses[i].Scale, 1e-9, "tick %d", i)
		}
		assert.EqualValues(t, 2, res.Stats.ModeChanges)
	})

	t.Run("forced mode replays differ", func(t *testing.T) {
		var raw, kalman app.ReplayResult
		decode(t, h.do(t, http.MethodPost, "/api/sessions/"+sess.ID+"/replay?mode=raw", ""), &raw)
		decode(t, h.do(t, http.MethodPost, "/api/sessions/"+sess.ID+"/replay?mode=3", ""), &kalman)

		require.Len(t, raw.Poses, n)
		require.Len(t, kalman.Poses, n)
		assert.Equal(t, tracking.ModeRaw, raw.Mode)
		assert.NotEqual(t, raw.Poses[60], kalman.Poses[60])

		// Raw mode applies the scale target directly; the opening pinch
		// leaves the smoothed scale behind it.
		assert.Greater(t, raw.Poses[n-1].Scale, kalman.Poses[n-1].Scale)
	})

	t.Run("mode survives restart", func(t *testing.T) {
		restarted, err := app.New(app.Config{
			Settings: config.Default(),
			Store:    h.store,
			Camera:   capture.NewMockCamera(nil, true),
			Detector: detector.NewMockDetector(),
		})
		require.NoError(t, err)
		assert.Equal(t, tracking.ModeRaw, restarted.Mode())
	})
}

func TestE2E_PipelineFollowsHand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/mode", `{"mode": "raw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.det.SetHands([]detector.HandLandmarks{detector.OpenPalmAt(0.9, 0.5)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.app.Start(ctx))
	defer h.app.Stop()

	// In raw mode the rotation follows the hand's offset from the center.
	var pose struct {
		Pose  control.Pose `json:"pose"`
		Ready bool         `json:"ready"`
	}
	require.Eventually(t, func() bool {
		resp, err := h.client.Get(h.ts.URL + "/api/pose")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		json.NewDecoder(resp.Body).Decode(&pose)
		return pose.Ready && pose.Pose.RotY > 0
	}, 3*time.Second, 20*time.Millisecond)
	assert.InDelta(t, 0, pose.Pose.RotX, 1e-3)

	// Losing the hand holds the rotation.
	h.det.SetHands(nil)
	time.Sleep(200 * time.Millisecond)
	held := h.app.Poses()
	p, ok := held.Latest()
	require.True(t, ok)
	assert.InDelta(t, pose.Pose.RotY, p.RotY, 1e-9)

	var stats map[string]any
	decode(t, h.do(t, http.MethodGet, "/api/stats", ""), &stats)
	assert.Greater(t, stats["ticks"], stats["control_ticks"])
}
