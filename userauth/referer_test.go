package userauth

import (
	"net/http/httptest"
	"testing"
)

func TestResolveReferer(t *testing.T) {
	type testCase struct {
		target   string
		referer  string
		expected string
	}
	for _, tc := range []testCase{
		{"/login", "", "/"},
		{"/login?redirect=/index2", "", "/index2"},
		{"/login?redirect=/index2", "/ignored", "/index2"},
		{"/login?redirect=", "/from/header", "/from/header"},
		{"/login", "/from/header?a=1", "/from/header?a=1"},
		{"/login?redirect=user/index", "", "/"},
		{"/login?redirect=http://evil.example/x", "", "/"},
		{"/login", "http://evil.example/x", "/"},
		{"/login", "//evil.example/x", "/"},
		{"/login?redirect=/%5Cevil.example", "", "/"},
		{"/login?redirect=/a&redirect=/b", "", "/"},
		{"/login", "/login", "/"},
		{"/login?redirect=/next/login/again", "", "/"},
	} {
		r := httptest.NewRequest("GET", tc.target, nil)
		if tc.referer != "" {
			r.Header.Set("Referer", tc.referer)
		}
		actual := ResolveReferer(r, "/login")
		if actual != tc.expected {
			t.Errorf("ResolveReferer(%v, referer=%q) should be %q but got %q", tc.target, tc.referer, tc.expected, actual)
		}
	}
}
