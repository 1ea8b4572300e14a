package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Post(t *testing.T) {
	var gotBody, gotDefault, gotPerRequest string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotDefault = r.Header.Get("Content-Type")
		gotPerRequest = r.Header.Get("X-Sig")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := New(WithName("relay"), WithHeader("Content-Type", "application/json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := c.Post(context.Background(), srv.URL, []byte(`{"id":1}`), Header("X-Sig", "abc"), Label("method", "eth_sendBundle"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	if gotBody != `{"id":1}` {
		t.Errorf("body = %q", gotBody)
	}
	if gotDefault != "application/json" {
		t.Errorf("default header = %q", gotDefault)
	}
	if gotPerRequest != "abc" {
		t.Errorf("request header = %q", gotPerRequest)
	}
	if resp.IsError() || resp.String() != `{"ok":true}` {
		t.Errorf("resp = %d %q", resp.StatusCode, resp.String())
	}
}

func TestClient_StatusIsNotError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "bad_request", status: http.StatusBadRequest, wantErr: true},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c, err := New()
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			resp, err := c.Get(context.Background(), srv.URL)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d", resp.StatusCode)
			}
			if resp.IsError() != tt.wantErr {
				t.Errorf("IsError = %v", resp.IsError())
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c, err := New(WithTimeout(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}
