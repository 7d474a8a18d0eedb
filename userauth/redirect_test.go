package userauth

import (
	"net/http"
	"testing"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
)

func TestRedirect(t *testing.T) {
	redirectWith := func(status int) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Redirect(w, r, "/somewhere", status)
		})
	}
	apitest.Handler(redirectWith(0)).Get("/").Expect(t).
		Status(http.StatusFound).
		Header("Location", "/somewhere").
		End()
	apitest.Handler(redirectWith(http.StatusMovedPermanently)).Get("/").Expect(t).
		Status(http.StatusMovedPermanently).
		Header("Location", "/somewhere").
		End()
	apitest.Handler(redirectWith(http.StatusSeeOther)).Get("/").Expect(t).
		Status(http.StatusFound).
		End()
	apitest.Handler(redirectWith(http.StatusMovedPermanently)).Get("/").
		Header("Accept", "application/vnd.api+json").
		Expect(t).
		Status(http.StatusUnauthorized).
		Header("Location", "/somewhere").
		Header("Content-Type", "application/json").
		Assert(jsonpath.Equal("$.error", "401 Unauthorized")).
		End()
	apitest.Handler(redirectWith(0)).Get("/").
		Header("Accept", "text/html").
		Expect(t).
		Status(http.StatusFound).
		HeaderNotPresent("Content-Type").
		End()
}
