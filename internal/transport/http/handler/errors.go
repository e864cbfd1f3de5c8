package handler

const (
	errInternalServer = "Internal server error"
	errRunNotFound    = "Run not found"
)
