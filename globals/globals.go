package globals

// JwtSecret signs API tokens. main sets it from JWT_SECRET.
var JwtSecret = []byte("change-me")

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"
const RequestIDKey ContextKey = "requestId"
