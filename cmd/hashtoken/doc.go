// Command hashtoken generates the bcrypt hash of an API access token
// for use as the ACCESS_TOKEN_HASH environment variable. The token is
// read from the terminal without echo, or from stdin when piped.
package main
