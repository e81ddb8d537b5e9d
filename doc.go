// Package accounts provides user accounts and cookie based sessions: signup
// with email verification, password recovery, login and profile updates.
//
// Tokens:
//   - Verification and password reset tokens are random strings persisted in
//     the tokens table with their owner, type and creation time. TokenIssuer
//     retries on unique violations up to a fixed number of attempts and can
//     join a caller transaction.
//   - ExpirationPolicy decides if a password reset token aged out. Verification
//     tokens do not expire.
//
// Sessions:
//   - SessionEncoder signs SessionClaims (uid, username, role, iat) with HS256.
//     The credential travels in an HTTP only cookie configured by CookieConfig.
//
// Flows:
//   - Coordinator bundles one handler per flow (signup, verify, reset request,
//     reset verify, reset finalize, update, login). Handlers return
//     *errors.Error values from go-errors; the fiber controller maps their
//     categories to status codes and never leaks internal detail.
//
// Activity sinks:
//   - ActivitySink receives an event for every lifecycle step. Sinks run best
//     effort, errors are logged and never fail the request.
package accounts
