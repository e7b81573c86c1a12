package api

// API route path constants
const (
	// Catalog routes
	RouteGifs        = "/gifs"
	RoutePendingGifs = "/gifs/pending"

	// Conversion routes
	RouteConvert    = "/convert/{id}"
	RouteConvertAll = "/convert-all"

	// Status routes
	RouteStatus            = "/status"
	RouteHealth            = "/health"
	RouteActiveConversions = "/conversions/active"
)
