// Package cli provides the syncbridge command-line client.
//
// It wires configuration, the local token database, the backend API and the
// session, form and thread controllers, then either runs one scriptable
// subcommand or, without a subcommand, an interactive REPL.
//
// Key features:
//   - Register / Login / Logout, with the session restored from the local
//     database on start
//   - List, show, create and delete requirement forms; request status changes
//   - Read and post thread messages, attach files, follow the live feed
//   - mock-server: an in-process backend with demo data for local testing
package cli
