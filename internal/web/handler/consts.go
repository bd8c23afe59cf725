package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// APIPath is the prefix of the public API.
	APIPath = "/api"

	// AdminPath is the prefix of the token protected API.
	AdminPath = APIPath + "/admin"

	// ErrNilDepsFatalLogMsg is used if app or one of the required dependencies is nil.
	ErrNilDepsFatalLogMsg = "app or handler dependencies are nil"
)
