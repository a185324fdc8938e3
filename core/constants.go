package core

// Fixed response bodies on the wire
const (
	BodyNotFound     = "Not Found"
	BodyShuttingDown = "Server is shutting down"
	BodyInternal     = "Internal Server Error"
)
