package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOwnerFixture(t *testing.T, client *stubBackend, loggedIn bool) *OwnerHandler {
	t.Helper()
	_, sessions := newSessionFixture(client)
	if loggedIn {
		_, err := sessions.OwnerLogin(context.Background(), "shop@example.com", "secret")
		require.NoError(t, err)
	}
	return NewOwnerHandler(sessions, client)
}

func ownerRequest(method, target, body string, pathValues map[string]string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

func TestAddProductRequiresOwnerSession(t *testing.T) {
	handler := newOwnerFixture(t, &stubBackend{}, false)

	req := ownerRequest(http.MethodPost, "/api/owner/shops/s1/products",
		`{"product_id":"p1"}`, map[string]string{"shopID": "s1"})
	w := httptest.NewRecorder()
	handler.AddProduct(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddProductHappyPath(t *testing.T) {
	client := &stubBackend{}
	handler := newOwnerFixture(t, client, true)

	req := ownerRequest(http.MethodPost, "/api/owner/shops/s1/products",
		`{"product_id":"p1","price":68,"stock":10}`, map[string]string{"shopID": "s1"})
	w := httptest.NewRecorder()
	handler.AddProduct(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", client.lastShopID)
}

func TestAddProductValidatesBody(t *testing.T) {
	handler := newOwnerFixture(t, &stubBackend{}, true)

	req := ownerRequest(http.MethodPost, "/api/owner/shops/s1/products",
		`{}`, map[string]string{"shopID": "s1"})
	w := httptest.NewRecorder()
	handler.AddProduct(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProductHappyPath(t *testing.T) {
	client := &stubBackend{}
	handler := newOwnerFixture(t, client, true)

	req := ownerRequest(http.MethodPatch, "/api/owner/shops/s1/products/p1",
		`{"price":72}`, map[string]string{"shopID": "s1", "productID": "p1"})
	w := httptest.NewRecorder()
	handler.UpdateProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", client.lastShopID)
	assert.Equal(t, "p1", client.lastProduct)
}

func TestUpdateProductRequiresAField(t *testing.T) {
	handler := newOwnerFixture(t, &stubBackend{}, true)

	req := ownerRequest(http.MethodPatch, "/api/owner/shops/s1/products/p1",
		`{}`, map[string]string{"shopID": "s1", "productID": "p1"})
	w := httptest.NewRecorder()
	handler.UpdateProduct(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteProductRequiresOwnerSession(t *testing.T) {
	handler := newOwnerFixture(t, &stubBackend{}, false)

	req := ownerRequest(http.MethodDelete, "/api/owner/shops/s1/products/p1",
		"", map[string]string{"shopID": "s1", "productID": "p1"})
	w := httptest.NewRecorder()
	handler.DeleteProduct(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteProductHappyPath(t *testing.T) {
	client := &stubBackend{}
	handler := newOwnerFixture(t, client, true)

	req := ownerRequest(http.MethodDelete, "/api/owner/shops/s1/products/p1",
		"", map[string]string{"shopID": "s1", "productID": "p1"})
	w := httptest.NewRecorder()
	handler.DeleteProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
