// Package hooks lets a Lua script play the host collaborators of the
// authentication gate.
//
// A script may define any of these globals:
//
//	function get_user(req)                -- returns a user (table, string, number) or nil
//	function login_callback(req, user)    -- returns nil or { user = ..., redirect = "/path" }
//	function logout_callback(req, res, user) -- returns nil or { redirect = "/path" }
//
// req is a table with method, path, url, host, query and headers. res
// exposes res:set_header(name, value). Functions the script does not
// define are delegated to the fallback collaborators.
//
// Scripts are compiled once, every call runs in a fresh lua.LState bound
// to the request context.
package hooks
