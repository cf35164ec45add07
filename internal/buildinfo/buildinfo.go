package buildinfo

const Name = "cart-service"

// Version is overridden at link time with -ldflags "-X ...buildinfo.Version=...".
var Version = "0.1.0-SNAPSHOT"
