// Package httpserver runs barnyard's serve mode: a chi router carrying the
// secrets API plus liveness, readiness and drain endpoints, and a separate
// Prometheus metrics listener.
//
// Drain marks the server not ready so load balancers stop routing to it;
// undrain reverses that. Neither affects requests already in flight.
package httpserver
