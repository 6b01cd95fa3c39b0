package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "sitecontent context key " + string(c)
}

const (
	// RequestIDKey carries the per-request identifier set by the HTTP layer.
	RequestIDKey = contextKey("requestID")
	// SessionIDKey carries the admin edit session identifier.
	SessionIDKey = contextKey("sessionID")
	// SubjectKey carries the verified admin token subject.
	SubjectKey = contextKey("subject")
	// ComponentKey names the component emitting a log line.
	ComponentKey = contextKey("component")
	// OperationKey names the operation in progress.
	OperationKey = contextKey("operation")
)
