// Package startup handles application initialization: environment
// configuration, directory validation, tool availability checks, and
// the structured startup/shutdown log output.
package startup
