package userauth

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
)

type (
	mapSession map[string]interface{}

	countingRecorder map[string]int
)

func (m mapSession) Get(key string) interface{} {
	return m[key]
}

func (m mapSession) Set(key string, value interface{}) {
	if value == nil {
		delete(m, key)
		return
	}
	m[key] = value
}

func (c countingRecorder) Observe(route Route, outcome Outcome) {
	c[route.String()+"/"+outcome.String()]++
}

var (
	mockUser = map[string]interface{}{"id": 1}
)

func mockLoginURL(callbackURL, rootPath string) string {
	return rootPath + "/mocklogin?redirect=" + EncodeURIComponent(callbackURL)
}

func staticUser(user User, calls *int32) UserLookupFunc {
	return func(*http.Request) (User, error) {
		atomic.AddInt32(calls, 1)
		return user, nil
	}
}

func failOnError(t *testing.T) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		t.Errorf("unexpected error for %v: %v", r.URL, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func captureError(out *error) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		*out = err
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// protect builds a gate guarding /user* in front of a handler that
// answers 200 with the request path.
func protect(t *testing.T, sess mapSession, opts Options) http.Handler {
	opts.Session = func(*http.Request) Session { return sess }
	if opts.LoginURLFormatter == nil {
		opts.LoginURLFormatter = mockLoginURL
	}
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = failOnError(t)
	}
	g, err := New(MatchRegexp(regexp.MustCompile(`(?i)^/user`)), opts)
	require.NoError(t, err)
	return g.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}))
}

func TestEndToEndLogin(t *testing.T) {
	sess := mapSession{}
	var calls int32
	handler := protect(t, sess, Options{GetUser: UserLookupFunc(func(r *http.Request) (User, error) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path == "/login/callback" {
			return mockUser, nil
		}
		return nil, nil
	})})

	apitest.Handler(handler).Get("/user").Expect(t).
		Status(http.StatusFound).
		Header("Location", "/login?redirect=%2Fuser").
		End()
	require.Nil(t, sess.Get(DefaultUserField))

	apitest.Handler(handler).Get("/login").Expect(t).
		Status(http.StatusFound).
		Assert(locationMatches(`^/mocklogin\?redirect=http%3A%2F%2F.*%2Flogin%2Fcallback$`)).
		End()
	require.Equal(t, "/", sess.Get(LoginRefererField))

	apitest.Handler(handler).Get("/login/callback").Expect(t).
		Status(http.StatusFound).
		Header("Location", "/").
		End()
	require.Equal(t, mockUser, sess.Get(DefaultUserField))

	apitest.Handler(handler).Get("/user").Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.path", "/user")).
		End()
	require.Equal(t, int32(2), atomic.LoadInt32(&calls), "authenticated requests must not look up the user again")
}

func TestLoginStoresReferer(t *testing.T) {
	for _, tc := range []struct {
		name     string
		redirect string
		referer  string
		expected string
	}{
		{name: "query", redirect: "/index2", expected: "/index2"},
		{name: "relative query", redirect: "user/index", expected: "/"},
		{name: "header", referer: "/from/header", expected: "/from/header"},
		{name: "absolute header", referer: "http://evil.example/x", expected: "/"},
		{name: "login itself", redirect: "/login?x=1", expected: "/"},
		{name: "nothing", expected: "/"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sess := mapSession{}
			var calls int32
			handler := protect(t, sess, Options{GetUser: staticUser(mockUser, &calls)})
			req := apitest.Handler(handler).Get("/login")
			if tc.redirect != "" {
				req.Query("redirect", tc.redirect)
			}
			if tc.referer != "" {
				req.Header("Referer", tc.referer)
			}
			req.Expect(t).Status(http.StatusFound).End()
			require.Equal(t, tc.expected, sess.Get(LoginRefererField))
			require.Zero(t, atomic.LoadInt32(&calls), "login entry must not look up the user")

			apitest.Handler(handler).Get("/login/callback").Expect(t).
				Status(http.StatusFound).
				Header("Location", tc.expected).
				End()
		})
	}
}

func TestJSONClientsGetUnauthorized(t *testing.T) {
	var calls int32
	handler := protect(t, mapSession{}, Options{GetUser: staticUser(nil, &calls)})
	apitest.Handler(handler).Get("/login").Header("Accept", "application/json").Expect(t).
		Status(http.StatusUnauthorized).
		HeaderPresent("Location").
		Header("Content-Type", "application/json").
		Assert(jsonpath.Equal("$.error", "401 Unauthorized")).
		End()
	apitest.Handler(handler).Get("/user/foo").Header("Accept", "application/json, text/plain").Expect(t).
		Status(http.StatusUnauthorized).
		Header("Location", "/login?redirect=%2Fuser%2Ffoo").
		Body(`{"error":"401 Unauthorized"}`).
		End()
}

func TestLoginCallbackIsIdempotent(t *testing.T) {
	sess := mapSession{DefaultUserField: mockUser, LoginRefererField: "/user/settings"}
	var calls int32
	handler := protect(t, sess, Options{GetUser: staticUser(mockUser, &calls)})
	for i := 0; i < 5; i++ {
		apitest.Handler(handler).Get("/login/callback").Expect(t).
			Status(http.StatusFound).
			Header("Location", "/user/settings").
			End()
	}
	require.Zero(t, atomic.LoadInt32(&calls))
	require.Equal(t, mockUser, sess.Get(DefaultUserField))
}

func TestLoginCallbackWithoutUser(t *testing.T) {
	sess := mapSession{LoginRefererField: "/back"}
	var calls int32
	handler := protect(t, sess, Options{GetUser: staticUser(nil, &calls)})
	apitest.Handler(handler).Get("/login/callback").Expect(t).
		Status(http.StatusFound).
		Header("Location", "/back").
		End()
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Nil(t, sess.Get(DefaultUserField))
}

func TestLoginCallbackTransformsUser(t *testing.T) {
	sess := mapSession{}
	var calls int32
	handler := protect(t, sess, Options{
		UserField: "account",
		GetUser:   staticUser(mockUser, &calls),
		LoginCallback: LoginConfirmerFunc(func(r *http.Request, user User) (User, string, error) {
			return map[string]interface{}{"id": 1, "nick": "mock user"}, "/welcome", nil
		}),
	})
	apitest.Handler(handler).Get("/login/callback").Expect(t).
		Status(http.StatusFound).
		Header("Location", "/welcome").
		End()
	require.Equal(t, map[string]interface{}{"id": 1, "nick": "mock user"}, sess.Get("account"))
	require.Nil(t, sess.Get(DefaultUserField))
}

func TestLoginCallbackErrors(t *testing.T) {
	lookupFailure := errors.New("mock getUser error")
	confirmFailure := errors.New("mock login error")
	for _, tc := range []struct {
		name    string
		path    string
		opts    Options
		cause   error
		checkAs func(error) bool
	}{
		{
			name:  "lookup on callback",
			path:  "/login/callback",
			opts:  Options{GetUser: UserLookupFunc(func(*http.Request) (User, error) { return nil, lookupFailure })},
			cause: lookupFailure,
			checkAs: func(err error) bool {
				var target IdentityLookupError
				return errors.As(err, &target)
			},
		},
		{
			name: "confirmation on callback",
			path: "/login/callback",
			opts: Options{
				GetUser: UserLookupFunc(func(*http.Request) (User, error) { return mockUser, nil }),
				LoginCallback: LoginConfirmerFunc(func(*http.Request, User) (User, string, error) {
					return nil, "", confirmFailure
				}),
			},
			cause: confirmFailure,
			checkAs: func(err error) bool {
				var target LoginConfirmationError
				return errors.As(err, &target)
			},
		},
		{
			name:  "lookup on guarded path",
			path:  "/user/foo",
			opts:  Options{GetUser: UserLookupFunc(func(*http.Request) (User, error) { return nil, lookupFailure })},
			cause: lookupFailure,
			checkAs: func(err error) bool {
				var target IdentityLookupError
				return errors.As(err, &target)
			},
		},
		{
			name: "confirmation on guarded path",
			path: "/user/foo",
			opts: Options{
				GetUser: UserLookupFunc(func(*http.Request) (User, error) { return mockUser, nil }),
				LoginCallback: LoginConfirmerFunc(func(*http.Request, User) (User, string, error) {
					return mockUser, "/ignored", confirmFailure
				}),
			},
			cause: confirmFailure,
			checkAs: func(err error) bool {
				var target LoginConfirmationError
				return errors.As(err, &target)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sess := mapSession{}
			var got error
			tc.opts.ErrorHandler = captureError(&got)
			handler := protect(t, sess, tc.opts)
			apitest.Handler(handler).Get(tc.path).Expect(t).
				Status(http.StatusInternalServerError).
				HeaderNotPresent("Location").
				End()
			require.ErrorIs(t, got, tc.cause)
			require.True(t, tc.checkAs(got), "unexpected error type %T", got)
			require.Nil(t, sess.Get(DefaultUserField))
		})
	}
}

func TestLogout(t *testing.T) {
	logoutCallback := LogoutConfirmerFunc(func(w http.ResponseWriter, r *http.Request, user User) (string, error) {
		w.Header().Set("X-Logout", "logoutCallback header")
		return r.Header.Get("X-Mock-Redirect"), nil
	})

	t.Run("anonymous", func(t *testing.T) {
		var calls int32
		handler := protect(t, mapSession{}, Options{
			GetUser: staticUser(nil, &calls),
			LogoutCallback: LogoutConfirmerFunc(func(http.ResponseWriter, *http.Request, User) (string, error) {
				t.Fatal("logout callback must not run without a session user")
				return "", nil
			}),
		})
		apitest.Handler(handler).Get("/logout").Query("redirect", "/article/1").Expect(t).
			Status(http.StatusFound).
			Header("Location", "/article/1").
			End()
	})

	t.Run("authenticated", func(t *testing.T) {
		sess := mapSession{DefaultUserField: mockUser}
		var calls int32
		handler := protect(t, sess, Options{GetUser: staticUser(nil, &calls), LogoutCallback: logoutCallback})
		apitest.Handler(handler).Get("/logout").Header("Referer", "/logout/again").Expect(t).
			Status(http.StatusFound).
			Header("Location", "/").
			Header("X-Logout", "logoutCallback header").
			End()
		require.Nil(t, sess.Get(DefaultUserField))
	})

	t.Run("redirect override", func(t *testing.T) {
		sess := mapSession{DefaultUserField: mockUser}
		var calls int32
		handler := protect(t, sess, Options{GetUser: staticUser(nil, &calls), LogoutCallback: logoutCallback})
		apitest.Handler(handler).Get("/logout").Header("X-Mock-Redirect", "/bye").Expect(t).
			Status(http.StatusFound).
			Header("Location", "/bye").
			End()
		require.Nil(t, sess.Get(DefaultUserField))
	})

	t.Run("failure keeps the session", func(t *testing.T) {
		sess := mapSession{DefaultUserField: mockUser}
		failure := errors.New("mock logout error")
		var got error
		var calls int32
		handler := protect(t, sess, Options{
			GetUser: staticUser(nil, &calls),
			LogoutCallback: LogoutConfirmerFunc(func(http.ResponseWriter, *http.Request, User) (string, error) {
				return "", failure
			}),
			ErrorHandler: captureError(&got),
		})
		apitest.Handler(handler).Get("/logout").Expect(t).
			Status(http.StatusInternalServerError).
			End()
		require.ErrorIs(t, got, failure)
		var logoutErr LogoutConfirmationError
		require.ErrorAs(t, got, &logoutErr)
		require.Equal(t, mockUser, sess.Get(DefaultUserField))

		apitest.Handler(handler).Get("/user/still-here").Expect(t).
			Status(http.StatusOK).
			End()
	})
}

func TestGuardedLooksUpUser(t *testing.T) {
	t.Run("pass through", func(t *testing.T) {
		sess := mapSession{}
		var calls int32
		handler := protect(t, sess, Options{GetUser: staticUser(mockUser, &calls)})
		apitest.Handler(handler).Get("/user/foo").Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.path", "/user/foo")).
			End()
		require.Equal(t, mockUser, sess.Get(DefaultUserField))
		require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("redirect override", func(t *testing.T) {
		sess := mapSession{}
		var calls int32
		handler := protect(t, sess, Options{
			GetUser: staticUser(mockUser, &calls),
			LoginCallback: LoginConfirmerFunc(func(_ *http.Request, user User) (User, string, error) {
				return user, "/first-visit", nil
			}),
		})
		apitest.Handler(handler).Get("/user/foo").Expect(t).
			Status(http.StatusFound).
			Header("Location", "/first-visit").
			End()
		require.Equal(t, mockUser, sess.Get(DefaultUserField))
	})

	t.Run("query string is kept", func(t *testing.T) {
		var calls int32
		handler := protect(t, mapSession{}, Options{GetUser: staticUser(nil, &calls)})
		apitest.Handler(handler).Get("/user/foo").Query("a", "b").Expect(t).
			Status(http.StatusFound).
			Header("Location", "/login?redirect=%2Fuser%2Ffoo%3Fa%3Db").
			End()
	})

	t.Run("typed nil user", func(t *testing.T) {
		type account struct{ ID int }
		sess := mapSession{}
		handler := protect(t, sess, Options{GetUser: UserLookupFunc(func(*http.Request) (User, error) {
			var missing *account
			return missing, nil
		})})
		apitest.Handler(handler).Get("/user").Expect(t).
			Status(http.StatusFound).
			Header("Location", "/login?redirect=%2Fuser").
			End()
		require.Nil(t, sess.Get(DefaultUserField))
	})
}

func TestUnguardedPassThrough(t *testing.T) {
	var calls int32
	g, err := New(MatchPrefix("/user"), Options{
		GetUser:           staticUser(mockUser, &calls),
		LoginURLFormatter: mockLoginURL,
		Session: func(*http.Request) Session {
			t.Fatal("unguarded requests must not touch the session")
			return nil
		},
	})
	require.NoError(t, err)
	handler := g.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	apitest.Handler(handler).Get("/public/index.html").Expect(t).Status(http.StatusTeapot).End()
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestMissingSession(t *testing.T) {
	var calls int32
	var got error
	g, err := New(MatchPrefix("/user"), Options{
		GetUser:           staticUser(mockUser, &calls),
		LoginURLFormatter: mockLoginURL,
		ErrorHandler:      captureError(&got),
	})
	require.NoError(t, err)
	handler := g.Protect(http.NotFoundHandler())
	apitest.Handler(handler).Get("/user").Expect(t).Status(http.StatusInternalServerError).End()
	require.ErrorIs(t, got, ErrNoSession)
}

func TestRootPath(t *testing.T) {
	sess := mapSession{}
	var calls int32
	var formatterRoot string
	handler := protect(t, sess, Options{
		RootPath: "/app/",
		GetUser:  staticUser(nil, &calls),
		LoginURLFormatter: func(callbackURL, rootPath string) string {
			formatterRoot = rootPath
			return "https://sso.example/?service=" + EncodeURIComponent(callbackURL)
		},
	})
	apitest.Handler(handler).Get("/user").Expect(t).
		Status(http.StatusFound).
		Header("Location", "/app/login?redirect=%2Fuser").
		End()
	apitest.Handler(handler).Get("/login").Expect(t).
		Status(http.StatusFound).
		Assert(locationMatches(`^https://sso\.example/\?service=http%3A%2F%2F.*%2Fapp%2Flogin%2Fcallback$`)).
		End()
	require.Equal(t, "/app", formatterRoot)
	require.Equal(t, "/app/", sess.Get(LoginRefererField))

	delete(sess, LoginRefererField)
	apitest.Handler(handler).Get("/login/callback").Expect(t).
		Status(http.StatusFound).
		Header("Location", "/app/").
		End()
}

func TestForwardedProto(t *testing.T) {
	var calls int32
	handler := protect(t, mapSession{}, Options{
		GetUser:             staticUser(nil, &calls),
		TrustForwardedProto: true,
	})
	apitest.Handler(handler).Get("/login").Header("X-Forwarded-Proto", "HTTPS, http").Expect(t).
		Status(http.StatusFound).
		Assert(locationMatches(`^/mocklogin\?redirect=https%3A%2F%2F`)).
		End()
}

func TestRecorderSeesOutcomes(t *testing.T) {
	rec := countingRecorder{}
	sess := mapSession{}
	var calls int32
	handler := protect(t, sess, Options{GetUser: staticUser(mockUser, &calls), Recorder: rec})
	apitest.Handler(handler).Get("/about").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Get("/login").Expect(t).Status(http.StatusFound).End()
	apitest.Handler(handler).Get("/login/callback").Expect(t).Status(http.StatusFound).End()
	apitest.Handler(handler).Get("/user").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Get("/logout").Expect(t).Status(http.StatusFound).End()
	require.Equal(t, countingRecorder{
		"unguarded/pass":       1,
		"login/redirect":       1,
		"login_callback/login": 1,
		"guarded/pass":         1,
		"logout/logout":        1,
	}, rec)
}

func locationMatches(pattern string) func(*http.Response, *http.Request) error {
	re := regexp.MustCompile(pattern)
	return func(res *http.Response, _ *http.Request) error {
		loc := res.Header.Get("Location")
		if !re.MatchString(loc) {
			return fmt.Errorf("location %q does not match %v", loc, pattern)
		}
		return nil
	}
}
