package keepkey

import "github.com/keepkey/device-gateway/internal/constants"

// Re-exported defaults, so callers configuring a Gateway never need to
// import the internal package directly.
const (
	DefaultReportReadTimeout                     = constants.DefaultReportReadTimeout
	DefaultMaxContinuationReports                = constants.DefaultMaxContinuationReports
	DefaultEnumerationPollInterval                = constants.DefaultEnumerationPollInterval
	DefaultConsecutiveTimeoutsBeforeInvalidState  = constants.DefaultConsecutiveTimeoutsBeforeInvalidState
	VendorID                                      = constants.VendorID
)
