package common

// AuthTokenHeaderName is the HTTP header used to carry the session token on
// authenticated requests. The Authorization header with a Bearer prefix is
// accepted as well.
const AuthTokenHeaderName = "auth-token"
