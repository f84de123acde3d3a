// Package android applies the consumer-side interpretation of the packaging
// keys a mobile build tool reads from a spec file.
package android
