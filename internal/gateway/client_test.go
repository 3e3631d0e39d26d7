package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/reconcile"
	"github.com/xenking/product-desk/internal/wire"
)

func testProduct(id string, status product.Status) product.Product {
	ts := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	return product.Product{
		ID:         id,
		Title:      "Lamp",
		ImageURLs:  []string{"https://img/1.jpg"},
		ProductURL: "https://shop/1",
		Price:      "1499.00",
		Status:     status,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

func writeJSON(w http.ResponseWriter, code int, fn func(e *jx.Encoder)) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(wire.Encode(fn))
}

// newTestServer serves a minimal API that requires the session cookie on
// product routes.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	requireSession := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(auth.SessionCookie); err != nil || c.Value == "" {
				writeJSON(w, http.StatusUnauthorized, func(e *jx.Encoder) { wire.EncodeError(e, "Unauthorized") })
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		password, err := wire.DecodePassword(jx.Decode(r.Body, 256))
		if err != nil || password != "secret" {
			writeJSON(w, http.StatusUnauthorized, func(e *jx.Encoder) { wire.EncodeError(e, "Incorrect password") })
			return
		}
		http.SetCookie(w, &http.Cookie{Name: auth.SessionCookie, Value: "admin", Path: "/"})
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeRole(e, auth.RoleAdmin) })
	})
	mux.HandleFunc("GET /api/products", requireSession(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
			wire.EncodeProducts(e, []product.Product{testProduct("p1", product.StatusApproved)})
		})
	}))
	mux.HandleFunc("POST /api/products", requireSession(func(w http.ResponseWriter, r *http.Request) {
		in, err := wire.DecodeInput(jx.Decode(r.Body, 1024))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) { wire.EncodeError(e, err.Error()) })
			return
		}
		p := testProduct("srv-1", product.StatusPending)
		p.Title = in.Title
		p.Price = in.Price
		writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { wire.EncodeProduct(e, p) })
	}))
	mux.HandleFunc("PATCH /api/products/{id}/status", requireSession(func(w http.ResponseWriter, r *http.Request) {
		status, err := wire.DecodeStatus(jx.Decode(r.Body, 256))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) { wire.EncodeError(e, err.Error()) })
			return
		}
		if r.PathValue("id") != "p1" {
			writeJSON(w, http.StatusNotFound, func(e *jx.Encoder) { wire.EncodeError(e, "Product not found") })
			return
		}
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeProduct(e, testProduct("p1", status)) })
	}))
	mux.HandleFunc("DELETE /api/products/{id}", requireSession(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeSuccess(e) })
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_LoginKeepsSession(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.List(ctx)
	require.True(t, IsStatus(err, http.StatusUnauthorized), "got %v", err)

	role, err := c.Login(ctx, "secret")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, role)

	ps, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, product.StatusApproved, ps[0].Status)
}

func TestClient_LoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "wrong")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "Incorrect password", se.Message)
}

func TestClient_Mutations(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = c.Login(ctx, "secret")
	require.NoError(t, err)

	created, err := c.Create(ctx, product.Input{
		Title:      "Chair",
		ImageURLs:  []string{"https://img/c.jpg"},
		ProductURL: "https://shop/c",
		Price:      "250.00",
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", created.ID)
	assert.Equal(t, "Chair", created.Title)
	assert.Equal(t, "250.00", created.Price)

	updated, err := c.UpdateStatus(ctx, "p1", product.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, product.StatusRejected, updated.Status)

	_, err = c.UpdateStatus(ctx, "missing", product.StatusRejected)
	require.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "Product not found")

	require.NoError(t, c.Delete(ctx, "p1"))
}

func TestClient_DrivesEngine(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	role, err := c.Login(ctx, "secret")
	require.NoError(t, err)

	e := reconcile.New(c, role)
	require.NoError(t, e.Load(ctx))

	err = e.ChangeStatus(ctx, "p1", product.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, product.StatusPending, e.Snapshot().Confirmed[0].Status)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute request")
}

func TestClient_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"not":"a list"}`)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestParseBaseURL(t *testing.T) {
	u, err := parseBaseURL("localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", u.String())

	_, err = parseBaseURL("  ")
	require.Error(t, err)
}
