// Package specfile reads and writes Android packaging spec files: a line
// oriented list of `key = value` settings where `#` starts a comment and a
// value opened with `"""` runs verbatim until the closing `"""`.
//
// The loader does not interpret values. Whether a value is a scalar, a comma
// separated list or an embedded XML fragment is decided by the consumer
// through Spec.Get, Spec.List and Spec.Bool.
package specfile
