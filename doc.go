// Package auth implements an email and password account backend: the
// session lifecycle engine plus the registration, activation, recovery, and
// profile flows built on it.
//
// Session model:
//   - Every signed token (access and refresh) embeds a salt value that is
//     also persisted as a row in the salts table. A token is only honored
//     while its salt row exists, so deleting the row revokes the session
//     regardless of the token's embedded expiry.
//   - Refresh tokens are one-time use. A refresh consumes the presented
//     row with a single DELETE ... RETURNING and a replayed token shows up
//     as zero rows deleted, which is rejected as unauthorized.
//   - Password recovery is the destructive path: finalizing a reset drops
//     every salt and refresh row for the account, signing out all devices.
//
// Flows:
//   - Commands (RegisterUserHandler, ActivateAccountHandler, and the two
//     password reset handlers) run multi-step writes inside RunInTx and
//     report through OnResponse callbacks. They never send email; the HTTP
//     controller owns delivery.
//   - Auther holds the hot path: Authenticate, Refresh, Logout, and
//     VerifyAccess, the gate the protected-route middleware calls per
//     request.
package auth
