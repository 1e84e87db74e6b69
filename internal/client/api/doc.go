// Package api contains the SyncBridge resource clients: one type per backend
// resource (auth, form, function, nonfunction, message, file).
//
// Every method translates one typed call into exactly one client.Requester
// invocation. Missing tokens, ids and required fields are rejected locally
// before anything is sent. Responses are decoded from the backend envelope
//
//	{"status": "success", "message": "...", "data": {...}}
//
// into explicit structs; a missing or mistyped data object is reported as
// client.ErrMalformedResponse. The clients hold no state of their own.
package api
