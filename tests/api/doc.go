// Package api holds black-box tests that exercise a running veltamail
// backend over HTTP: domain and mailbox management, message reading,
// magic-link issuance and redemption, and the health probes.
//
// The server must already be listening; the suite does not start one.
//
// Usage:
//
//	# Start the backend
//	go run cmd/server/main.go
//
//	# Run the suite against it
//	go test -tags=api ./tests/api/... -v
//
// Environment Variables:
//
//	API_BASE_URL - base URL of the running server (default: http://localhost:8080)
//	API_KEY      - admin API key (default: test-api-key-for-development-only-32chars)
package api
