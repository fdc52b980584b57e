package internal

// BuildTime is the release timestamp (YYYYMMDDHHMMSS), set at link time with
// -ldflags "-X go.eggybyte.com/egg/servicex/internal.BuildTime=...".
var BuildTime = "unknown"

// Version is the framework release, set at link time like BuildTime.
var Version = "dev"
