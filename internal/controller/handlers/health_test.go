package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.pingErr }

func TestProbes(t *testing.T) {
	tests := []struct {
		name           string
		endpoint       string
		pinger         Pinger
		expectedStatus int
	}{
		{
			name:           "Healthz Always OK",
			endpoint:       "/healthz",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Readyz Success",
			endpoint:       "/readyz",
			pinger:         &mockPinger{},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Readyz Store Fail",
			endpoint:       "/readyz",
			pinger:         &mockPinger{pingErr: errors.New("db down")},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "Readyz No Pinger",
			endpoint:       "/readyz",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(nil, nil, tt.pinger)

			req := httptest.NewRequest(http.MethodGet, tt.endpoint, nil)
			rr := httptest.NewRecorder()

			if tt.endpoint == "/healthz" {
				h.Healthz(rr, req)
			} else {
				h.Readyz(rr, req)
			}

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}
