package security

import "time"

// timeNow is swapped out in tests to exercise TOTP windows.
var timeNow = time.Now
