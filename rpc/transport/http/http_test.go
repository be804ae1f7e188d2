package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

func newTestServer(t *testing.T, config common.ServerConfig) *httptest.Server {
	t.Helper()
	st := &httpServerTransport{config: config}
	st.RegisterHandler(func(shardId uint64, req []byte) []byte {
		return append([]byte(strings.Repeat("#", int(shardId))), req...)
	})
	srv := httptest.NewServer(st.Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientServer(t *testing.T) {
	srv := newTestServer(t, common.ServerConfig{})

	client := NewHttpClientTransport()
	err := client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{Endpoints: []string{srv.URL}, RetryCount: 2},
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	resp, err := client.Send(3, []byte("req"))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if string(resp) != "###req" {
		t.Errorf("Send() = %q, want %q", resp, "###req")
	}
}

func TestRoutes(t *testing.T) {
	metrics.GetOrCreateCounter(`dcdt_http_test_total`).Inc()
	srv := newTestServer(t, common.ServerConfig{Metrics: true})

	testCases := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/health", http.StatusOK, `{"status":"ok"}`},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, "dcdt_http_test_total 1"},
		{"invalid shard", http.MethodPost, "/abc", http.StatusBadRequest, "invalid shard id"},
		{"wrong method", http.MethodGet, "/1", http.StatusMethodNotAllowed, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			if !strings.Contains(string(body), tc.wantBody) {
				t.Errorf("body = %q, want it to contain %q", body, tc.wantBody)
			}
		})
	}
}

func TestMetricsDisabled(t *testing.T) {
	srv := newTestServer(t, common.ServerConfig{})
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	// falls through to the POST /{shardId} route
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestSendNotConnected(t *testing.T) {
	if _, err := NewHttpClientTransport().Send(1, nil); err == nil {
		t.Errorf("Send() error = nil, want error")
	}
}
