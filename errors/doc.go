// Package errors provides the error taxonomy of the remote-data layer.
//
// Every failure that reaches a caller is eventually projected into a
// remotedata.ErrorInfo, but inside the layer failures travel as *AppError
// values carrying a machine-readable code, a human-readable message and the
// HTTP status a UI should render:
//
//   - NOT_FOUND: a logically expected related resource is absent
//   - ENDPOINT_NOT_FOUND: the endpoint resolver has no path for a resource type
//   - LINK_RESOLUTION_FAILED: a nested hypermedia link could not be resolved
//   - INVALID_INPUT: a caller passed options that do not validate
//
// Transport failures are classified by the httpclient package and are not
// rewrapped here.
package errors
