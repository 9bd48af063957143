package ari_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"callboard/internal/ari"
	"callboard/internal/config"
	"callboard/internal/pbx"
)

func newTestClient(t *testing.T, handler http.Handler) (*ari.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())

	cfg := config.ARIConfig{
		Host:           u.Hostname(),
		Port:           port,
		Username:       "dashboard",
		Password:       "hunter2",
		Technology:     "PJSIP",
		RequestTimeout: 2,
	}
	return ari.NewClient(cfg), srv
}

func requireBasicAuth(t *testing.T, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "dashboard" || pass != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func TestGetEndpoint(t *testing.T) {
	client, _ := newTestClient(t, requireBasicAuth(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ari/endpoints/PJSIP/1001" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"technology":"PJSIP","resource":"1001","state":"online","channel_ids":["ch1","ch2"]}`))
	}))

	ep, err := client.GetEndpoint(context.Background(), "1001")
	if err != nil {
		t.Fatalf("GetEndpoint: %v", err)
	}
	if ep.Resource != "1001" || ep.State != "online" {
		t.Errorf("unexpected endpoint: %+v", ep)
	}
	if len(ep.ChannelIDs) != 2 || ep.ChannelIDs[0] != "ch1" {
		t.Errorf("unexpected channel ids: %v", ep.ChannelIDs)
	}
}

func TestGetEndpointNotFound(t *testing.T) {
	client, _ := newTestClient(t, requireBasicAuth(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetEndpoint(context.Background(), "9999")
	if err == nil {
		t.Fatal("expected error")
	}
	if !pbx.IsNotFound(err) {
		t.Errorf("expected not-found kind, got %v", err)
	}
}

func TestGetChannel(t *testing.T) {
	client, _ := newTestClient(t, requireBasicAuth(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "ch1", "name": "PJSIP/1001-00000001", "state": "Up",
			"caller": {"name": "Alice", "number": "+77010001111"},
			"connected": {"name": "", "number": "1001"},
			"dialplan": {"context": "support", "exten": "1001", "priority": 2},
			"bridge_id": "br1"
		}`))
	}))

	ch, err := client.GetChannel(context.Background(), "ch1")
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if ch.Caller.Number != "+77010001111" {
		t.Errorf("caller number = %q", ch.Caller.Number)
	}
	if ch.BridgeID != "br1" {
		t.Errorf("bridge id = %q", ch.BridgeID)
	}
	if ch.Dialplan.Context != "support" {
		t.Errorf("dialplan context = %q", ch.Dialplan.Context)
	}
}

func TestGetChannelVar(t *testing.T) {
	client, _ := newTestClient(t, requireBasicAuth(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("variable"); got != "CDR(uniqueid)" {
			t.Errorf("variable param = %q", got)
		}
		w.Write([]byte(`{"value":"169900.5"}`))
	}))

	v, err := client.GetChannelVar(context.Background(), "ch3", "CDR(uniqueid)")
	if err != nil {
		t.Fatalf("GetChannelVar: %v", err)
	}
	if v != "169900.5" {
		t.Errorf("value = %q", v)
	}
}

func TestAuthRejectionIsDistinct(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.GetChannel(context.Background(), "ch1")
	if pbx.KindOf(err) != pbx.KindAuth {
		t.Errorf("expected auth kind, got %v", err)
	}
}

func TestProtocolErrorIsDistinct(t *testing.T) {
	client, _ := newTestClient(t, requireBasicAuth(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))

	_, err := client.GetBridge(context.Background(), "br1")
	if pbx.KindOf(err) != pbx.KindProtocol {
		t.Errorf("expected protocol kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected body in error, got %v", err)
	}
}

func TestConnectionErrorIsDistinct(t *testing.T) {
	client, srv := newTestClient(t, http.NotFoundHandler())
	srv.Close() // nothing listening anymore

	_, err := client.GetEndpoint(context.Background(), "1001")
	if pbx.KindOf(err) != pbx.KindConnection {
		t.Errorf("expected connection kind, got %v", err)
	}
}
