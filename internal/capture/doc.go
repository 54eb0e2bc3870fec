// Package capture takes screenshots through an external command.
//
// A Source enumerates displays and grabs one as PNG bytes. The Capturer
// always selects the first display so repeated captures are deterministic,
// bounds each attempt with capture.timeout_seconds, and tags every failure
// with services.ErrCapture.
package capture
