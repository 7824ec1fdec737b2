// Package account implements email and password accounts: registration
// with email activation, login and logout over a signed session cookie,
// password change and reset, a one-to-one profile, and account deletion.
//
// Lifecycle tokens:
//   - Activation and reset links carry a uid and a stateless HS256 token
//     issued by TokenCodec. The token embeds an HMAC fingerprint of the
//     account state it was issued for, so it stops verifying once the
//     password changes, the account activates or the user logs in.
//
// Account states:
//   - Accounts move from pending to active through AccountStateMachine.
//     Activation is idempotent and concurrent activations converge on a
//     single status change.
//
// Activity sinks:
//   - ActivitySink receives best-effort audit events for registration,
//     logins, password changes, resets and profile edits. Sink errors are
//     logged and never fail the operation.
//
// Transport:
//   - RegisterAccountRoutes mounts the JSON API on a go-router Router. Protected
//     routes resolve the session cookie through SessionManager.
package account
