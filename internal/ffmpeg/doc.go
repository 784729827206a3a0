// Package ffmpeg builds the transform specs for the supported media
// operations. Every command reads the stream from stdin (pipe:0) and
// writes to stdout (pipe:1); side inputs like subtitle or audio files
// are passed as paths and recorded in the spec's AuxPaths for cleanup.
package ffmpeg
