package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func bindBody(body string, dst interface{}) map[string]string {
	Setup()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBindMissingFieldsUseJSONNames(t *testing.T) {
	var req model.AdminLoginRequest
	fields := bindBody(`{"email":"a@b.com"}`, &req)

	assert.Len(t, fields, 1)
	assert.Contains(t, fields["password"], "required")
}

func TestBindRoleTag(t *testing.T) {
	var req model.UpdateRoleRequest
	fields := bindBody(`{"role":"owner"}`, &req)
	assert.Contains(t, fields["role"], "must be one of")

	req = model.UpdateRoleRequest{}
	assert.Nil(t, bindBody(`{"role":"editor"}`, &req))
	assert.Equal(t, "editor", req.Role)
}

func TestBindRequiresExplicitBool(t *testing.T) {
	var req model.UpdateActiveRequest
	assert.Contains(t, bindBody(`{}`, &req), "is_active")

	req = model.UpdateActiveRequest{}
	assert.Nil(t, bindBody(`{"is_active":false}`, &req))
	assert.False(t, *req.IsActive)
}

func TestBindMalformedJSONIsGeneric(t *testing.T) {
	var req model.AdminLoginRequest
	fields := bindBody(`{"email": "secret-password`, &req)

	assert.Equal(t, map[string]string{"detail": "request body is not valid JSON"}, fields)
}

func TestSetupIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Setup()
		Setup()
	})
}
