// Package authcore is the authentication and authorization core of the
// dinely reservation platform: credential verification, an optional TOTP
// second factor, self-contained signed session tokens, and single-use
// action tokens for email confirmation and password reset.
//
// The package is the public surface. It exposes [Engine], [Builder],
// [Config], the collaborator interfaces ([Directory], [ActionTokenStore])
// and the sentinel failure categories. Coordination internals (audit
// dispatch, metrics, rate limiting) live under internal/ and are never
// exported.
//
// # Architecture boundaries
//
// The core owns no storage. Account lookup and mutation go through the
// host-supplied [Directory]; action token persistence goes through
// [ActionTokenStore]. Session tokens are never stored anywhere: they are
// signed, self-contained claims valid until expiry. Revocation before
// expiry is out of scope.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. Session token issuance and validation are pure
// in-memory computation and acquire no locks. The one operation that
// needs cross-instance race safety is action token redemption, which
// relies on the store's AtomicMarkUsed guarantee rather than in-process
// locking.
package authcore
