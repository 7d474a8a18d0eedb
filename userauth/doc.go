// Package userauth gates a subset of URL paths behind a session based
// login flow.
//
// The gate owns four paths: the login entry (redirects to an external
// login page), the login callback (turns an external identity into a
// session user), the logout path (clears the session user) and every
// path accepted by the configured Matcher (requires a session user).
//
// Flow for an unauthenticated client:
//
//  1. GET /user/profile is guarded, no session user: redirect to
//     /login?redirect=%2Fuser%2Fprofile
//  2. GET /login stores the return-to path in the session and redirects
//     to whatever LoginURLFormatter returns for the callback URL.
//  3. GET /login/callback asks GetUser for the identity, lets
//     LoginCallback finalize it, stores it in the session and redirects
//     to the stored return-to path.
//  4. GET /logout asks LogoutCallback, clears the session user and
//     redirects back.
//
// Identity verification is never done here, it is always delegated to
// the host through UserLookup.
package userauth
