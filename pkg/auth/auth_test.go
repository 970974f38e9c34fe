package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/protected", PanelAuth(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestPanelAuth(t *testing.T) {
	JWTSecretKey = "test-secret-with-enough-length-000"
	AdminSecretKey = "admin-secret"
	t.Cleanup(func() {
		JWTSecretKey = ""
		AdminSecretKey = ""
	})

	token, err := GenerateAdminToken("admin@example.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	cases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"no credentials", nil, http.StatusUnauthorized},
		{"bearer token", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"bad scheme", map[string]string{"Authorization": "Basic " + token}, http.StatusUnauthorized},
		{"garbage token", map[string]string{"Authorization": "Bearer abc.def.ghi"}, http.StatusUnauthorized},
		{"admin secret", map[string]string{"X-Admin-Secret": "admin-secret"}, http.StatusOK},
		{"wrong admin secret", map[string]string{"X-Admin-Secret": "nope"}, http.StatusUnauthorized},
	}

	app := newApp()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestValidateAdminTokenRejectsOtherSecret(t *testing.T) {
	JWTSecretKey = "first-secret"
	token, err := GenerateAdminToken("a@b.c", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	JWTSecretKey = "second-secret"
	t.Cleanup(func() { JWTSecretKey = "" })

	if _, err := ValidateAdminToken(token); err == nil {
		t.Fatal("expected validation error with a different secret")
	}
}

func TestGenerateAdminTokenWithoutSecret(t *testing.T) {
	JWTSecretKey = ""
	if _, err := GenerateAdminToken("a@b.c", "admin", time.Hour); err != ErrSecretNotConfigured {
		t.Fatalf("err = %v, want ErrSecretNotConfigured", err)
	}
}
