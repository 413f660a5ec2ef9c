package continuity

// Version is the release of the module, overridden at link time with
// -ldflags "-X github.com/aretw0/continuity.Version=v1.2.3".
var Version = "dev"
