// Package auth authenticates backoffice users and decides what they can
// reach.
//
// Passwords are kept as bcrypt digests. A successful login produces a
// short lived HS256 token carrying the username, every role of the user
// and its id. The token (and a copy of the identity) travels back to the
// browser inside cookies that are encrypted with AES-GCM, so the browser
// can hold them but cannot read or forge them.
//
// Tokens are stateless: the only server side state is the denylist, which
// holds the ids of tokens that were explicitly logged out and forgets them
// once they would have expired anyway. The denylist lives in process
// memory, a restart forgets every revocation.
package auth
