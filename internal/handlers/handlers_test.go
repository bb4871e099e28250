package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium-api/internal/authz"
	"github.com/atriumhq/atrium-api/internal/config"
	"github.com/atriumhq/atrium-api/internal/models"
)

var testLogger = zerolog.Nop()

var testPaging = config.PaginationConfig{DefaultLimit: 20, MaxLimit: 100}

func identityFor(user models.User) authz.Identity {
	return authz.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
}

// newRequest builds a request carrying the given principal and route vars; a
// zero identity leaves the request unauthenticated.
func newRequest(t *testing.T, method, target string, body interface{}, identity authz.Identity, vars map[string]string) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if identity.UserID != "" {
		req = req.WithContext(authz.WithIdentity(req.Context(), identity))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

type testEnvelope struct {
	TraceID string          `json:"traceId"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Paging  *struct {
		Size        int `json:"size"`
		TotalPage   int `json:"total_page"`
		CurrentPage int `json:"current_page"`
		Total       int `json:"total"`
	} `json:"paging"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, env testEnvelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}
