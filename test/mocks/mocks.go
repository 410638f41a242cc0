// test/mocks/mocks.go

// Package mocks contains generated mocks for the application's interfaces.
// To regenerate mocks, run `make mocks` from the root directory.
package mocks

//go:generate mockgen -source=../../internal/core/ports/cart_gateway.go -destination=cart_gateway_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/cart_store.go -destination=cart_store_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/notifier.go -destination=notifier_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/cart_repository.go -destination=cart_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/cart_api_service.go -destination=cart_api_service_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/cache.go -destination=cache_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/database.go -destination=database_mock.go -package=mocks
