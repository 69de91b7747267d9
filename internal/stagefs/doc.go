// Package stagefs provides the filesystem abstraction used by the staging
// pipeline. The OS type is the production implementation; tests exercise
// pipeline behavior against temp directories through the same interface.
package stagefs
