package errors

// Kind classifies an error for the callers of the synchronization core.
type Kind int

const (
	Unknown Kind = iota

	// Transport means the request never got a response.
	Transport

	// InvalidCredentials is returned when the backend refuses a login.
	InvalidCredentials

	// Validation is returned when the backend, or a local check, rejects a payload.
	Validation

	// Fetch, Add and Toggle are backend-reported failures of the
	// corresponding operation.
	Fetch
	Add
	Toggle

	// NotAuthenticated is a local precondition failure, no request is sent.
	NotAuthenticated

	// MissingIdentifier is returned when a paper is added without doi nor arXiv id.
	MissingIdentifier
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	Transport:          "transport",
	InvalidCredentials: "invalid credentials",
	Validation:         "validation",
	Fetch:              "fetch",
	Add:                "add",
	Toggle:             "toggle",
	NotAuthenticated:   "not authenticated",
	MissingIdentifier:  "missing identifier",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}
