package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/nsot-jobs/internal/device"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/config"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/database"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/logging"
	"github.com/nerrad567/nsot-jobs/internal/job"
	"github.com/nerrad567/nsot-jobs/internal/jobresult"
	"github.com/nerrad567/nsot-jobs/internal/runner"
	_ "github.com/nerrad567/nsot-jobs/migrations"
)

// testServer creates a Server backed by a migrated in-memory database with
// the device lookup job registered and one device, core-sw-01.
func testServer(t *testing.T) *Server {
	t.Helper()
	srv, _ := testServerWithDB(t)
	return srv
}

// testServerWithDB also returns the database so tests can write to it the
// way another nsotjobs process would.
func testServerWithDB(t *testing.T) (*Server, *database.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	if err := registry.CreateDevice(ctx, &device.Device{Name: "core-sw-01", DeviceType: "dcs-7280"}); err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	results := jobresult.NewSQLiteRepository(db.DB)
	r := runner.New(results)
	if err := r.Register(job.NewDeviceLookupJob(registry, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			WebSocket: config.WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Logger:   logging.Discard(),
		Registry: registry,
		Runner:   r,
		Results:  results,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	r.AddPublisher(srv.Hub())

	return srv, db
}

// do sends a request through the full middleware stack.
func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func messagesOf(entries []job.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() with no registry should fail")
	}
	if _, err := New(Deps{Logger: logging.Discard(), Registry: device.NewRegistry(nil)}); err == nil {
		t.Error("New() with no runner should fail")
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if body["jobs"] != float64(1) || body["devices"] != float64(1) {
		t.Errorf("counts = jobs %v devices %v, want 1 and 1", body["jobs"], body["devices"])
	}

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
}

func TestDevicesWrittenElsewhere(t *testing.T) {
	srv, db := testServerWithDB(t)
	ctx := context.Background()

	other := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	for _, name := range []string{"core-sw-02", "core-sw-03"} {
		if err := other.CreateDevice(ctx, &device.Device{Name: name, DeviceType: "dcs-7280"}); err != nil {
			t.Fatalf("CreateDevice(%s): %v", name, err)
		}
	}

	// A run looks one of them up, caching just that device.
	rec := do(t, srv, http.MethodPost, "/api/v1/jobs/device-lookup-job/run", `{"data":{"device_name":"core-sw-02"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("run status = %d, want 201", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/devices", "")
	list := decode[struct {
		Count int `json:"count"`
	}](t, rec)
	if list.Count != 3 {
		t.Errorf("GET /devices count = %d, want 3", list.Count)
	}

	health := decode[map[string]any](t, do(t, srv, http.MethodGet, "/api/v1/health", ""))
	if health["devices"] != float64(3) {
		t.Errorf("health devices = %v, want 3", health["devices"])
	}
}

func TestRequestID(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := testServer(t)
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if e := decode[Error](t, rec); e.Code != ErrCodeInternal {
		t.Errorf("code = %q", e.Code)
	}
}

// =============================================================================
// Jobs
// =============================================================================

func TestListJobs(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := decode[struct {
		Jobs  []runner.JobInfo `json:"jobs"`
		Count int              `json:"count"`
	}](t, rec)

	if body.Count != 1 || body.Jobs[0].Slug != "device-lookup-job" {
		t.Fatalf("jobs = %+v", body)
	}
	if body.Jobs[0].Name != "Device Lookup Job" || len(body.Jobs[0].Vars) != 2 {
		t.Errorf("job = %+v", body.Jobs[0])
	}
}

func TestGetJob(t *testing.T) {
	srv := testServer(t)

	if rec := do(t, srv, http.MethodGet, "/api/v1/jobs/device-lookup-job", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/jobs/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRunJob_Found(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/jobs/device-lookup-job/run",
		`{"data": {"device_name": "core-sw-01"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	result := decode[jobresult.Result](t, rec)
	want := []string{
		"Starting device lookup for device: core-sw-01 (dry run: true)",
		"Found device: core-sw-01 (dcs-7280)",
		"Dry run mode - no changes made",
		"Device lookup job completed",
	}
	if got := messagesOf(result.Entries); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("entries = %q, want %q", got, want)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/job-results/"+result.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get result status = %d", rec.Code)
	}
	stored := decode[jobresult.Result](t, rec)
	if stored.JobName != "device-lookup-job" || len(stored.Entries) != 4 {
		t.Errorf("stored = %+v", stored)
	}
}

func TestRunJob_NotFoundIsStillCreated(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/jobs/device-lookup-job/run",
		`{"data": {"device_name": "ghost", "dry_run": false}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	result := decode[jobresult.Result](t, rec)
	if result.Counts[job.LevelWarning] != 1 {
		t.Errorf("warning count = %d, want 1", result.Counts[job.LevelWarning])
	}
}

func TestRunJob_Errors(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"unknown job", "/api/v1/jobs/nope/run", `{"data": {}}`, http.StatusNotFound, ErrCodeNotFound},
		{"bad json", "/api/v1/jobs/device-lookup-job/run", `{`, http.StatusBadRequest, ErrCodeBadRequest},
		{"empty body", "/api/v1/jobs/device-lookup-job/run", "", http.StatusBadRequest, ErrCodeValidation},
		{"missing name", "/api/v1/jobs/device-lookup-job/run", `{"data": {"dry_run": true}}`, http.StatusBadRequest, ErrCodeValidation},
		{"unknown var", "/api/v1/jobs/device-lookup-job/run", `{"data": {"device_name": "x", "force": 1}}`, http.StatusBadRequest, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if e := decode[Error](t, rec); e.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", e.Code, tt.wantErr)
			}
		})
	}

	rec := do(t, srv, http.MethodGet, "/api/v1/job-results", "")
	if list := decode[jobresult.ListResult](t, rec); list.Total != 0 {
		t.Errorf("rejected runs were stored: total = %d", list.Total)
	}
}

// =============================================================================
// Job results
// =============================================================================

func TestListResults(t *testing.T) {
	srv := testServer(t)

	for _, name := range []string{"core-sw-01", "ghost", "edge-rtr-01"} {
		rec := do(t, srv, http.MethodPost, "/api/v1/jobs/device-lookup-job/run",
			`{"data": {"device_name": "`+name+`"}}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("run %s: status = %d", name, rec.Code)
		}
	}

	rec := do(t, srv, http.MethodGet, "/api/v1/job-results?job=device-lookup-job&limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decode[jobresult.ListResult](t, rec)
	if list.Total != 3 || len(list.Results) != 2 || list.Limit != 2 {
		t.Errorf("list = total %d, len %d, limit %d", list.Total, len(list.Results), list.Limit)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/job-results?job=other", "")
	if list := decode[jobresult.ListResult](t, rec); list.Total != 0 {
		t.Errorf("filtered total = %d, want 0", list.Total)
	}

	for _, q := range []string{"limit=x", "offset=-1"} {
		if rec := do(t, srv, http.MethodGet, "/api/v1/job-results?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/job-results/jr-missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing result status = %d, want 404", rec.Code)
	}
}

func TestResults_NotStored(t *testing.T) {
	srv := testServer(t)
	srv.results = nil

	if rec := do(t, srv, http.MethodGet, "/api/v1/job-results", ""); rec.Code != http.StatusNotFound {
		t.Errorf("list status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/job-results/jr-1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// Devices
// =============================================================================

func TestDevices(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/devices",
		`{"name": "Edge Router 01", "device_type": "mx204", "tags": ["edge"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decode[device.Device](t, rec)
	if created.ID == "" || created.Slug != "edge-router-01" || created.Status != device.StatusActive {
		t.Errorf("created = %+v", created)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/devices", "")
	body := decode[struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}](t, rec)
	if body.Count != 2 || body.Devices[0].Name != "Edge Router 01" {
		t.Errorf("list = %+v", body)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/devices/core-sw-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decode[device.Device](t, rec); got.DeviceType != "dcs-7280" {
		t.Errorf("got = %+v", got)
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/devices/CORE-SW-01", ""); rec.Code != http.StatusNotFound {
		t.Errorf("case-mismatched name status = %d, want 404", rec.Code)
	}
}

func TestDeleteDevice(t *testing.T) {
	srv := testServer(t)

	if rec := do(t, srv, http.MethodDelete, "/api/v1/devices/core-sw-01", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/devices/core-sw-01", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/v1/devices/core-sw-01", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}

	rec := do(t, srv, http.MethodPost, "/api/v1/jobs/device-lookup-job/run", `{"data": {"device_name": "core-sw-01"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("run status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Device 'core-sw-01' not found") {
		t.Errorf("run after delete = %s", rec.Body.String())
	}
}

func TestCreateDevice_Errors(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing name", `{"device_type": "x"}`, http.StatusBadRequest},
		{"missing type", `{"name": "x"}`, http.StatusBadRequest},
		{"bad status", `{"name": "x", "device_type": "y", "status": "broken"}`, http.StatusBadRequest},
		{"duplicate", `{"name": "core-sw-01", "device_type": "y"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, srv, http.MethodPost, "/api/v1/devices", tt.body); rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

// =============================================================================
// WebSocket
// =============================================================================

func TestValidChannel(t *testing.T) {
	tests := map[string]bool{
		"job.entry":                    true,
		"job.result":                   true,
		"job.result:device-lookup-job": true,
		"job.result:":                  false,
		"device.state_changed":         false,
		"":                             false,
	}
	for ch, want := range tests {
		if got := validChannel(ch); got != want {
			t.Errorf("validChannel(%q) = %v, want %v", ch, got, want)
		}
	}
}

func TestWebSocket_StreamsRun(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	read := func() WSMessage {
		t.Helper()
		//nolint:errcheck // test deadline
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		return msg
	}

	if err := conn.WriteJSON(WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: map[string]any{"channels": []string{"nope"}}}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := read(); msg.Type != WSTypeError || msg.ID != "1" {
		t.Fatalf("unknown channel reply = %+v", msg)
	}

	sub := WSMessage{Type: WSTypeSubscribe, ID: "2", Payload: map[string]any{
		"channels": []string{ChannelJobEntry, ChannelJobResult + ":device-lookup-job"},
	}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if msg := read(); msg.Type != WSTypeResponse || msg.ID != "2" {
		t.Fatalf("subscribe reply = %+v", msg)
	}

	resp, err := http.Post(ts.URL+"/api/v1/jobs/device-lookup-job/run", "application/json",
		bytes.NewBufferString(`{"data": {"device_name": "ghost"}}`))
	if err != nil {
		t.Fatalf("POST run: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("run status = %d", resp.StatusCode)
	}

	var entryMessages []string
	for i := 0; i < 3; i++ {
		msg := read()
		if msg.EventType != ChannelJobEntry {
			t.Fatalf("event %d = %q, want %q", i, msg.EventType, ChannelJobEntry)
		}
		payload, _ := msg.Payload.(map[string]any)
		entry, _ := payload["entry"].(map[string]any)
		text, _ := entry["message"].(string)
		entryMessages = append(entryMessages, text)
	}
	want := []string{
		"Starting device lookup for device: ghost (dry run: true)",
		"Device 'ghost' not found",
		"Device lookup job completed",
	}
	if strings.Join(entryMessages, "|") != strings.Join(want, "|") {
		t.Errorf("streamed entries = %q, want %q", entryMessages, want)
	}

	if msg := read(); msg.EventType != ChannelJobResult {
		t.Errorf("last event = %q, want %q", msg.EventType, ChannelJobResult)
	}
}
