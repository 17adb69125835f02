// Package httpclient wraps net/http for calls to upstream services. It applies
// a shared timeout, User-Agent and outbound token-bucket limit, forwards the
// inbound request ID, and turns non-2xx responses into *StatusError values.
package httpclient
