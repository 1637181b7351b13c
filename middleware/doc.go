// Package middleware adapts goGuard to net/http.
//
// [Authenticate] turns a verified bearer JWT into the request principal. [Secure]
// runs the downstream handler as a secure action: it is rate limited per principal
// and endpoint and audited once with its outcome. A quota rejection is answered with
// 429 and a Retry-After header without calling the handler.
package middleware
