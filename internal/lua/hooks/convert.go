package hooks

import (
	"fmt"
	"net/http"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// toGo turns a Lua value into something encoding/json can handle.
// Tables with an array part become slices, everything else becomes a
// map[string]interface{}.
func toGo(lv lua.LValue) interface{} {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return float64(v)
	case *lua.LTable:
		maxn := v.MaxN()
		if maxn == 0 {
			ret := make(map[string]interface{})
			v.ForEach(func(key, value lua.LValue) {
				ret[fmt.Sprint(toGo(key))] = toGo(value)
			})
			return ret
		}
		ret := make([]interface{}, 0, maxn)
		for i := 1; i <= maxn; i++ {
			ret = append(ret, toGo(v.RawGetInt(i)))
		}
		return ret
	default:
		return v.String()
	}
}

// toLua is the inverse of toGo for the shapes user records usually
// have.
func toLua(L *lua.LState, v interface{}) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case float64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case int:
		return lua.LNumber(float64(v))
	case int32:
		return lua.LNumber(float64(v))
	case int64:
		return lua.LNumber(float64(v))
	case map[string]interface{}:
		t := L.NewTable()
		for k, val := range v {
			t.RawSetString(k, toLua(L, val))
		}
		return t
	case map[string]string:
		t := L.NewTable()
		for k, val := range v {
			t.RawSetString(k, lua.LString(val))
		}
		return t
	case []interface{}:
		t := L.NewTable()
		for i, val := range v {
			t.RawSetInt(i+1, toLua(L, val))
		}
		return t
	case []string:
		t := L.NewTable()
		for i, val := range v {
			t.RawSetInt(i+1, lua.LString(val))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

func requestTable(L *lua.LState, r *http.Request) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("method", lua.LString(r.Method))
	t.RawSetString("path", lua.LString(r.URL.Path))
	t.RawSetString("url", lua.LString(r.URL.RequestURI()))
	t.RawSetString("host", lua.LString(r.Host))
	query := L.NewTable()
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query.RawSetString(k, lua.LString(v[0]))
		}
	}
	t.RawSetString("query", query)
	headers := L.NewTable()
	names := make([]string, 0, len(r.Header))
	for k := range r.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		headers.RawSetString(k, lua.LString(r.Header.Get(k)))
	}
	t.RawSetString("headers", headers)
	return t
}

func responseObject(L *lua.LState, w http.ResponseWriter) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = w
	meta := L.NewTable()
	L.SetField(meta, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"set_header": func(L *lua.LState) int {
			actual := L.CheckUserData(1)
			if actual.Value != w {
				L.RaiseError("set_header called on a foreign response object")
			}
			w.Header().Set(L.CheckString(2), L.CheckString(3))
			return 0
		},
	}))
	L.SetMetatable(ud, meta)
	return ud
}
