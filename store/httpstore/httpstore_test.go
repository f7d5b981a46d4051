package httpstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadAllDecodesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"mac":"aa:bb:cc:dd:ee:01","ip":"192.168.1.10","name":"Lamp","channel":1}]`))
	}))
	defer srv.Close()

	r := New(srv.URL)
	records, err := r.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].MAC != "aa:bb:cc:dd:ee:01" || records[0].Channel != 1 {
		t.Errorf("got %+v", records[0])
	}
}

func TestReadAllErrorsOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := New(srv.URL)
	if _, err := r.ReadAll(context.Background()); err == nil {
		t.Error("expected error on 500 response")
	}
}
