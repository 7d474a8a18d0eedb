// Package directory is a small user directory that plays the identity
// side of the login flow for the demo host.
//
// Accounts live in sqlite. The mock login page issues one-time tickets
// (kept in memory for a few minutes) and sends the browser back to the
// login callback with ?ticket=...; GetUser redeems the ticket.
//
// Nothing here verifies credentials, anyone who can reach the mock login
// page can pick any registered login.
package directory
