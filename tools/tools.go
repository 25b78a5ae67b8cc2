//go:build tools

// Package tools documents development tool dependencies.
// They are run with `go run pkg@version` or installed with `go install` and are
// not tracked in go.mod.
package tools

// mockgen - regenerates internal/mocks
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock/mockgen@v0.6.0 (matches go.uber.org/mock in go.mod)
//
// golangci-lint - lint gate used before merging
//   Install: go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@v2.4.0
