package watchllm

// Version is the SDK release, stamped into the client descriptor on every
// event and overridable at build time via -ldflags.
var Version = "0.4.0"

const clientName = "watchllm-go"
