package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/keeperops/vaultward/internal/logging"
)

// newFakeVault serves the minimal Vaultwarden API surface the commands touch.
func newFakeVault(t *testing.T, ciphers []map[string]interface{}) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/identity/connect/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/api/ciphers", func(w http.ResponseWriter, r *http.Request) {
		if ciphers == nil {
			ciphers = []map[string]interface{}{}
		}
		writeJSON(w, map[string]interface{}{"data": ciphers})
	})
	mux.HandleFunc("/api/accounts/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"id":    "owner-1",
			"name":  "Owner",
			"email": "owner@example.com",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// setCommandEnv points the environment at a fake vault with safe defaults.
func setCommandEnv(t *testing.T, serverURL string) {
	t.Helper()
	t.Setenv("VAULTWARDEN_URL", serverURL)
	t.Setenv("CLIENT_ID", "user.test")
	t.Setenv("CLIENT_SECRET", "secret")
	t.Setenv("ROTATION_SNS_TOPIC_ARN", "arn:aws:sns:eu-west-1:123456789012:rotation")
	t.Setenv("AWS_SNS_REGION", "eu-west-1")
	t.Setenv("AWS_SNS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SNS_SECRET_ACCESS_KEY", "testsecret")
	t.Setenv("ROTATION_STATE_FILE", filepath.Join(t.TempDir(), "state.json"))
}

func testOptions() (*Options, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Options{Logger: logging.NewWithWriter(out, false, true)}, out
}
