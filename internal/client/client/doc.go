// Package client contains the remote and local bootstrap pieces of the feed
// sync client.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the API interface) for the
//     remote feed: paged fetches (FetchAfter/FetchBefore/FetchNewer),
//     Save, RemoveByID, LikeByID/UnlikeByID and multipart Upload.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that attaches the
//     session token and a request id to every call.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) that opens
//     the SQLite database and applies the embedded goose migrations.
//
// # Error Handling
//
// A request that never got a response returns an error wrapping
// ErrUnavailable. A non-2xx response returns *StatusError carrying the status
// code and reason phrase. Both are classified by common.From.
//
// Timeouts are owned here (NewHTTPClient's timeout); callers treat a timeout
// like any other transport failure.
package client
