// Package mocks provides mock implementations for testing the TempGuard services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRepo := mocks.NewMockRecordRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(rec, nil)
package mocks

// Generate mock for RecordRepository interface from internal/core package.
// This creates MockRecordRepository with methods for all RecordRepository interface methods:
// Create, GetByID, Query, Delete, DeleteOlderThan, DeleteAll, Count
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=record_repository_mock.go github.com/target/tempguard-api/internal/core RecordRepository

// Generate mock for ProfileRepository interface from internal/core package.
// This creates MockProfileRepository with methods for all ProfileRepository interface methods:
// GetProfile, CreateProfileIfAbsent, CreateProfile, ListProfiles, DeleteProfile
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_repository_mock.go github.com/target/tempguard-api/internal/core ProfileRepository

// Generate mock for CredentialRepository interface from internal/core package.
// This creates MockCredentialRepository with methods for all CredentialRepository interface methods:
// CreateCredential, GetCredentialByEmail, DeleteCredential
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_repository_mock.go github.com/target/tempguard-api/internal/core CredentialRepository

// Generate mock for ProductLookup interface from internal/ports package.
// This creates MockProductLookup with the LookupProduct method.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=product_lookup_mock.go github.com/target/tempguard-api/internal/ports ProductLookup
