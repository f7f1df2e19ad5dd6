package nic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"billserver/internal/domain"
)

func testServer(t *testing.T, invoiceHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/eivital/v1.04/auth", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("client_id") != "cid" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"Status":"1","Data":{"AuthToken":"tok-1","TokenExpiry":0}}`))
	})
	mux.HandleFunc("/eicore/v1.03/Invoice", invoiceHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateIRN(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("AuthToken") != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"Status":"1","Data":{"Irn":"irn-abc","AckNo":"112010000000001","AckDt":"2026-04-01 11:30:00","SignedQRCode":"qr"}}`))
	})

	c := NewClient(srv.URL, "cid", "secret", "user", zerolog.Nop())
	ack, err := c.GenerateIRN(context.Background(), []byte(`{"Data":"sealed"}`))
	if err != nil {
		t.Fatalf("GenerateIRN() error: %v", err)
	}
	if ack.IRN != "irn-abc" {
		t.Fatalf("IRN = %q, want irn-abc", ack.IRN)
	}
	if ack.AckNo != "112010000000001" {
		t.Fatalf("AckNo = %q", ack.AckNo)
	}
	if ack.AckDate.Hour() != 11 {
		t.Fatalf("AckDate = %s, want 11:30 local", ack.AckDate)
	}
}

func TestGenerateIRNRejected(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Status":"0","ErrorDetails":[{"ErrorCode":"2150","ErrorMessage":"Duplicate IRN"}]}`))
	})

	c := NewClient(srv.URL, "cid", "secret", "user", zerolog.Nop())
	_, err := c.GenerateIRN(context.Background(), []byte(`{}`))
	if !errors.Is(err, domain.ErrIRNRejected) {
		t.Fatalf("GenerateIRN() error = %v, want ErrIRNRejected", err)
	}
}

func TestTokenIsReused(t *testing.T) {
	authCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/eivital/v1.04/auth", func(w http.ResponseWriter, r *http.Request) {
		authCalls++
		_, _ = w.Write([]byte(`{"Status":"1","Data":{"AuthToken":"tok-1","TokenExpiry":0}}`))
	})
	mux.HandleFunc("/eicore/v1.03/Invoice", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Status":"1","Data":{"Irn":"x","AckNo":"1","AckDt":"2026-04-01 11:30:00"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "cid", "secret", "user", zerolog.Nop())
	for i := 0; i < 3; i++ {
		if _, err := c.GenerateIRN(context.Background(), []byte(`{}`)); err != nil {
			t.Fatalf("GenerateIRN() %d error: %v", i+1, err)
		}
	}
	if authCalls != 1 {
		t.Fatalf("auth called %d times, want 1", authCalls)
	}
}
