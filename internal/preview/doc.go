// Package preview turns the first frame of a media stream into a small
// JPEG suitable for listings and chat embeds.
package preview
