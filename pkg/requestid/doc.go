// Package requestid tags every request with a correlation id taken from a
// valid X-Request-ID header or freshly generated, so auth events logged
// during one call can be grouped.
package requestid
