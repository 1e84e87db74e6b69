// Package client contains the transport-level building blocks of the
// SyncBridge client.
//
// # Overview
//
// The package provides:
//  1. A transport contract (see the Requester interface) that resource
//     clients use to reach the backend.
//  2. A concrete HTTP implementation (see HTTPClient) that encodes JSON or
//     multipart bodies, attaches the bearer token and a request id, and maps
//     non-2xx answers to *APIError values.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     that open the SQLite database holding the cached token and apply the
//     embedded goose migrations.
//  4. ParseTokenClaims, an unverified JWT claims reader used to show the
//     session expiry.
//
// # Error Handling
//
// Failures are exposed as sentinel errors matched with errors.Is. Local
// precondition failures (ErrNotLoggedIn, ErrInvalidArgument, ErrFileTooLarge)
// never reach the network. Backend failures are *APIError values that unwrap
// to ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict, ErrValidation
// or ErrServer. Transport failures wrap ErrUnavailable.
//
// # Retries
//
// HTTPClient never retries. Every call is attempted at most once.
package client
