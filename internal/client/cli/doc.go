// Package cli provides the feedsync command-line client.
//
// Every invocation resolves the configuration, opens the local database and
// restores the persisted session before running one command (see App):
//
//   - login / logout: set or drop the active identity
//   - feed: print the feed page by page, fetching from the server as needed
//   - refresh: pull posts newer than the newest stored one
//   - watch: poll for newer posts until interrupted
//   - post, like, unlike, rm: optimistic mutations
//
// Commands work against the local cache when the server is unreachable and
// report the failure kind (network, api, unknown) on stderr.
package cli
