package hooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/andrebq/userauth/userauth"
	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

type (
	// Collaborators used for every hook the script leaves undefined.
	// Nil fields fall back to the gate defaults.
	Collaborators struct {
		GetUser userauth.UserLookup
		Login   userauth.LoginConfirmer
		Logout  userauth.LogoutConfirmer
	}

	Script struct {
		name     string
		proto    *lua.FunctionProto
		defines  map[string]bool
		fallback Collaborators
	}

	ScriptError struct {
		Script   string
		Function string
		cause    error
	}

	callbackResult struct {
		Redirect string
	}
)

const (
	getUserFn        = "get_user"
	loginCallbackFn  = "login_callback"
	logoutCallbackFn = "logout_callback"
)

var (
	errNoHooks = errors.New("script does not define get_user, login_callback or logout_callback")
)

func (s ScriptError) Error() string {
	if s.Function == "" {
		return fmt.Sprintf("hooks: script %v failed, cause %v", s.Script, s.cause)
	}
	return fmt.Sprintf("hooks: %v in script %v failed, cause %v", s.Function, s.Script, s.cause)
}

func (s ScriptError) Unwrap() error {
	return s.cause
}

// Load compiles source and checks which hooks it defines.
func Load(name, source string, fallback Collaborators) (*Script, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, ScriptError{Script: name, cause: err}
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, ScriptError{Script: name, cause: err}
	}
	s := &Script{
		name:     name,
		proto:    proto,
		defines:  make(map[string]bool),
		fallback: fallback,
	}
	L, err := s.newState(context.Background())
	if err != nil {
		return nil, err
	}
	defer L.Close()
	for _, fn := range []string{getUserFn, loginCallbackFn, logoutCallbackFn} {
		if L.GetGlobal(fn).Type() == lua.LTFunction {
			s.defines[fn] = true
		}
	}
	if len(s.defines) == 0 {
		return nil, ScriptError{Script: name, cause: errNoHooks}
	}
	return s, nil
}

// Defines reports whether the script implements the hook fn.
func (s *Script) Defines(fn string) bool {
	return s.defines[fn]
}

func (s *Script) GetUser(r *http.Request) (userauth.User, error) {
	if !s.defines[getUserFn] {
		if s.fallback.GetUser == nil {
			return nil, nil
		}
		return s.fallback.GetUser.GetUser(r)
	}
	L, err := s.newState(r.Context())
	if err != nil {
		return nil, err
	}
	defer L.Close()
	ret, err := s.invoke(L, getUserFn, requestTable(L, r))
	if err != nil {
		return nil, err
	}
	return toGo(ret), nil
}

func (s *Script) ConfirmLogin(r *http.Request, user userauth.User) (userauth.User, string, error) {
	if !s.defines[loginCallbackFn] {
		if s.fallback.Login == nil {
			return userauth.PassThroughLogin(r, user)
		}
		return s.fallback.Login.ConfirmLogin(r, user)
	}
	L, err := s.newState(r.Context())
	if err != nil {
		return nil, "", err
	}
	defer L.Close()
	ret, err := s.invoke(L, loginCallbackFn, requestTable(L, r), toLua(L, user))
	if err != nil {
		return nil, "", err
	}
	if ret == lua.LNil {
		return user, "", nil
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, "", ScriptError{Script: s.name, Function: loginCallbackFn, cause: fmt.Errorf("expecting a table or nil got %v", ret.Type())}
	}
	res, err := s.decodeResult(loginCallbackFn, tbl)
	if err != nil {
		return nil, "", err
	}
	if lv := tbl.RawGetString("user"); lv != lua.LNil {
		user = toGo(lv)
	}
	return user, res.Redirect, nil
}

func (s *Script) ConfirmLogout(w http.ResponseWriter, r *http.Request, user userauth.User) (string, error) {
	if !s.defines[logoutCallbackFn] {
		if s.fallback.Logout == nil {
			return userauth.PlainLogout(w, r, user)
		}
		return s.fallback.Logout.ConfirmLogout(w, r, user)
	}
	L, err := s.newState(r.Context())
	if err != nil {
		return "", err
	}
	defer L.Close()
	ret, err := s.invoke(L, logoutCallbackFn, requestTable(L, r), responseObject(L, w), toLua(L, user))
	if err != nil {
		return "", err
	}
	switch ret := ret.(type) {
	case *lua.LNilType:
		return "", nil
	case lua.LString:
		return string(ret), nil
	case *lua.LTable:
		res, err := s.decodeResult(logoutCallbackFn, ret)
		return res.Redirect, err
	}
	return "", ScriptError{Script: s.name, Function: logoutCallbackFn, cause: fmt.Errorf("expecting a table or nil got %v", ret.Type())}
}

func (s *Script) newState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := openLibs(L); err != nil {
		L.Close()
		return nil, ScriptError{Script: s.name, cause: err}
	}
	L.SetContext(ctx)
	L.Push(L.NewFunctionFromProto(s.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.Close()
		return nil, ScriptError{Script: s.name, cause: err}
	}
	return L, nil
}

func (s *Script) invoke(L *lua.LState, fn string, args ...lua.LValue) (lua.LValue, error) {
	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(fn),
		NRet:    1,
		Protect: true,
	}, args...)
	if err != nil {
		return nil, ScriptError{Script: s.name, Function: fn, cause: err}
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

func (s *Script) decodeResult(fn string, tbl *lua.LTable) (callbackResult, error) {
	var res callbackResult
	if err := gluamapper.Map(tbl, &res); err != nil {
		return callbackResult{}, ScriptError{Script: s.name, Function: fn, cause: err}
	}
	return res, nil
}
