package userauth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeURIComponent(t *testing.T) {
	for input, expected := range map[string]string{
		"/user":                "%2Fuser",
		"/user/foo?a=b&c=d e":  "%2Fuser%2Ffoo%3Fa%3Db%26c%3Dd%20e",
		"-_.!~*'()":            "-_.!~*'()",
		"/café":                "%2Fcaf%C3%A9",
		"/😀":                   "%2F%F0%9F%98%80",
		"�":               "%EF%BF%BD",
		"":                     "",
		"http://host/callback": "http%3A%2F%2Fhost%2Fcallback",
	} {
		assert.Equal(t, expected, EncodeURIComponent(input), "input %q", input)
	}
}

func TestEncodeURIComponentLoneSurrogate(t *testing.T) {
	// WTF-8 encoding of the lone high surrogate U+D800
	input := "/user/\xed\xa0\x80/x"
	out := EncodeURIComponent(input)
	assert.Equal(t, "%2Fuser%2F\xed\xa0\x80%2Fx", out)

	out = EncodeURIComponent("/\xff")
	assert.Equal(t, "%2F\xff", out)
}

func TestEncodeURIComponentRoundTrip(t *testing.T) {
	input := "/user/a b/ü?x=1&y=/z"
	decoded, err := url.QueryUnescape(EncodeURIComponent(input))
	assert.NoError(t, err)
	assert.Equal(t, input, decoded)
}
