package compute

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ghbridge/internal/domain"
)

func scalarResponse(name, value string) string {
	return `{"values":[{"ParamName":"` + name + `","InnerTree":{"{0;0}":[{"type":"System.String","data":"\"` + value + `\""}]}}]}`
}

func TestClient_Evaluate_ShouldPostGrasshopperPayload(t *testing.T) {
	var gotPath, gotKey string
	var gotBody evaluateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("RhinoComputeKey")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(scalarResponse("RH_OUT:sum", "15")))
	}))
	defer srv.Close()

	c := NewClient(domain.ComputeConfig{URL: srv.URL, APIKey: "secret", TimeoutSeconds: 5})
	param, _ := FormatParam("a", 10)
	res, err := c.Evaluate(context.Background(), "add.gh", []Param{param})
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	if gotPath != "/grasshopper" {
		t.Errorf("Expected POST /grasshopper, got %s", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("Expected RhinoComputeKey header, got %q", gotKey)
	}
	if gotBody.Pointer != "add.gh" {
		t.Errorf("Expected pointer add.gh, got %q", gotBody.Pointer)
	}
	if gotBody.Algo != nil {
		t.Error("Expected algo to be null")
	}
	if len(res.Values) != 1 || res.Values[0].ParamName != "RH_OUT:sum" {
		t.Errorf("Unexpected response values: %+v", res.Values)
	}
}

func TestClient_Evaluate_ShouldProcess500WithValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(scalarResponse("RH_OUT:warned", "ok")))
	}))
	defer srv.Close()

	c := NewClient(domain.ComputeConfig{URL: srv.URL, TimeoutSeconds: 5})
	res, err := c.Evaluate(context.Background(), "warn.gh", nil)
	if err != nil {
		t.Fatalf("Expected 500-with-values to be processed, got: %v", err)
	}
	if len(res.Values) != 1 {
		t.Errorf("Expected 1 value, got %d", len(res.Values))
	}
}

func TestClient_Evaluate_ShouldFailOn500WithoutValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`solver exception`))
	}))
	defer srv.Close()

	c := NewClient(domain.ComputeConfig{URL: srv.URL, TimeoutSeconds: 5})
	_, err := c.Evaluate(context.Background(), "boom.gh", nil)
	if err == nil {
		t.Fatal("Expected error for 500 without values")
	}
	if domain.KindOf(err) != domain.KindBackendProtocol {
		t.Errorf("Expected backend_protocol_error, got %s", domain.KindOf(err))
	}
}

func TestClient_Evaluate_ShouldFailOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewClient(domain.ComputeConfig{URL: srv.URL, TimeoutSeconds: 5})
	_, err := c.Evaluate(context.Background(), "weird.gh", nil)
	if err == nil {
		t.Fatal("Expected error for malformed body")
	}
	if domain.KindOf(err) != domain.KindBackendProtocol {
		t.Errorf("Expected backend_protocol_error, got %s", domain.KindOf(err))
	}
}

func TestClient_Evaluate_ShouldFailUnavailableWhenRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(domain.ComputeConfig{URL: srv.URL, TimeoutSeconds: 5})
	_, err := c.Evaluate(context.Background(), "gone.gh", nil)
	if err == nil {
		t.Fatal("Expected error for refused connection")
	}
	if domain.KindOf(err) != domain.KindBackendUnavailable {
		t.Errorf("Expected backend_unavailable, got %s", domain.KindOf(err))
	}
}

func TestClient_Evaluate_ShouldTimeOutWithinBoundedMargin(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() { close(release); srv.Close() }()

	c := NewClient(domain.ComputeConfig{URL: srv.URL, TimeoutSeconds: 1})
	start := time.Now()
	_, err := c.Evaluate(context.Background(), "slow.gh", nil)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if domain.KindOf(err) != domain.KindBackendTimeout {
		t.Errorf("Expected backend_timeout, got %s", domain.KindOf(err))
	}
	if elapsed > 3*time.Second {
		t.Errorf("Expected timeout near 1s, took %v", elapsed)
	}
}

func TestClient_Evaluate_ShouldCapInFlightJobs(t *testing.T) {
	var inFlight, maxSeen int
	var mu = make(chan struct{}, 1)
	mu <- struct{}{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-mu
		inFlight++
		if inFlight > maxSeen {
			maxSeen = inFlight
		}
		mu <- struct{}{}
		time.Sleep(50 * time.Millisecond)
		<-mu
		inFlight--
		mu <- struct{}{}
		w.Write([]byte(`{"values":[]}`))
	}))
	defer srv.Close()

	c := NewClient(domain.ComputeConfig{URL: srv.URL, TimeoutSeconds: 5, MaxInFlight: 2})
	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = c.Evaluate(context.Background(), "cap.gh", nil)
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	if maxSeen > 2 {
		t.Errorf("Expected at most 2 concurrent jobs, saw %d", maxSeen)
	}
}
