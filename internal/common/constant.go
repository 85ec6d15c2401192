package common

// AuthorizationHeaderName is the HTTP header / gRPC metadata key that carries
// the bearer access token on inbound requests.
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the access token inside the authorization value.
const BearerPrefix = "Bearer "
