package executor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quantsight/flowcanvas/internal/workflow"
)

func httpNode(cfg map[string]any) workflow.Node {
	return workflow.Node{ID: "n1", Type: workflow.NodeHTTPCall, Data: workflow.NodeData{Config: cfg}}
}

func TestHTTPCallExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/42" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"orderId": 42, "paid": true}`))
	}))
	defer srv.Close()

	exec := NewHTTPCall(srv.Client())
	node := httpNode(map[string]any{
		"url":     srv.URL + "/orders/{fetch.orderId}",
		"method":  "GET",
		"headers": map[string]any{"X-Token": "secret"},
	})
	inputs := map[string]any{
		"fetch": map[string]any{"orderId": 42},
	}

	out, err := exec.Execute(context.Background(), node, inputs)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["status"] != http.StatusOK {
		t.Errorf("status = %v", out["status"])
	}
	body, ok := out["body"].(map[string]any)
	if !ok {
		t.Fatalf("body = %#v, want decoded JSON object", out["body"])
	}
	if body["paid"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestHTTPCallUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	exec := NewHTTPCall(srv.Client())
	out, err := exec.Execute(context.Background(), httpNode(map[string]any{"url": srv.URL}), nil)
	if err == nil {
		t.Fatal("want error for 500 response")
	}
	// The envelope is still returned so the failure is inspectable.
	if out["status"] != http.StatusInternalServerError {
		t.Errorf("status = %v", out["status"])
	}
}

func TestHTTPCallMissingURL(t *testing.T) {
	exec := NewHTTPCall(nil)
	if _, err := exec.Execute(context.Background(), httpNode(map[string]any{}), nil); err == nil {
		t.Fatal("want error for missing url")
	}
}

func TestHTTPCallPostBodyPlaceholders(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	exec := NewHTTPCall(srv.Client())
	node := httpNode(map[string]any{
		"url":    srv.URL,
		"method": "post",
		"body":   `{"total": {cart.total}, "note": "{missing}"}`,
	})
	_, err := exec.Execute(context.Background(), node, map[string]any{
		"cart": map[string]any{"total": 99.5},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(gotBody, `"total": 99.5`) {
		t.Errorf("body = %q, placeholder not filled", gotBody)
	}
	if !strings.Contains(gotBody, `"{missing}"`) {
		t.Errorf("body = %q, unknown placeholder must be left as-is", gotBody)
	}
}

func TestBranchExecute(t *testing.T) {
	exec := NewBranch()
	node := workflow.Node{ID: "b1", Type: workflow.NodeBranch, Data: workflow.NodeData{
		Config: map[string]any{"expression": "fetch.status == 200"},
	}}

	out, err := exec.Execute(context.Background(), node, map[string]any{
		"fetch": map[string]any{"status": float64(200)},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["result"] != true || out["handle"] != "true" {
		t.Errorf("out = %v", out)
	}

	out, err = exec.Execute(context.Background(), node, map[string]any{
		"fetch": map[string]any{"status": float64(503)},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["result"] != false || out["handle"] != "false" {
		t.Errorf("out = %v", out)
	}
}

func TestBranchBadExpression(t *testing.T) {
	exec := NewBranch()
	node := workflow.Node{ID: "b1", Type: workflow.NodeBranch, Data: workflow.NodeData{
		Config: map[string]any{"expression": "status =="},
	}}
	if _, err := exec.Execute(context.Background(), node, nil); err == nil {
		t.Fatal("want parse error")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewBranch())

	if _, err := reg.Get(workflow.NodeBranch); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := reg.Get(workflow.NodeSQLQuery); err == nil {
		t.Error("want error for unregistered type")
	}

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register must panic")
		}
	}()
	reg.Register(NewBranch())
}
