package assist

import "fmt"

// ---------------------------------------------------------------------------
// Providers
// ---------------------------------------------------------------------------

// Provider selects which backend services a request.
type Provider string

const (
	ProviderOnDevice Provider = "on-device"
	ProviderCloud    Provider = "cloud"
	ProviderStub     Provider = "stub"
)

// ParseProvider validates a provider identifier read from config or storage.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOnDevice, ProviderCloud, ProviderStub:
		return Provider(s), nil
	}
	return "", fmt.Errorf("assist: unknown provider %q", s)
}

// ---------------------------------------------------------------------------
// On-device runtime state
// ---------------------------------------------------------------------------

// RuntimeState reports whether the local structured-generation runtime can
// serve requests.
type RuntimeState int

const (
	// RuntimeReady means the runtime is reachable and the model is loaded.
	RuntimeReady RuntimeState = iota

	// RuntimeIneligible means the runtime is not installed or not reachable
	// on this device.
	RuntimeIneligible

	// RuntimeDisabled means the on-device feature is switched off.
	RuntimeDisabled

	// RuntimeDownloading means the model is still being downloaded.
	RuntimeDownloading

	// RuntimeUnknown covers every other runtime failure.
	RuntimeUnknown
)

func (s RuntimeState) String() string {
	switch s {
	case RuntimeReady:
		return "ready"
	case RuntimeIneligible:
		return "ineligible"
	case RuntimeDisabled:
		return "disabled"
	case RuntimeDownloading:
		return "downloading"
	}
	return "unknown"
}

// reason returns the human-readable unavailability reason for a state.
func (s RuntimeState) reason() string {
	switch s {
	case RuntimeIneligible:
		return "this device cannot run the on-device model"
	case RuntimeDisabled:
		return "the on-device model feature is disabled"
	case RuntimeDownloading:
		return "the on-device model is still downloading"
	}
	return "the on-device model is not ready"
}

// ---------------------------------------------------------------------------
// Availability
// ---------------------------------------------------------------------------

// ReasonCredentialRequired is the unavailability reason for the cloud
// provider when no credential is stored.
const ReasonCredentialRequired = "credential required"

// Availability reports whether a provider can currently serve requests.
// Reason is set only when Available is false.
type Availability struct {
	Available bool
	Reason    string
}

// Environment is the state the availability resolver derives from: the
// on-device runtime's readiness and whether a cloud credential is stored.
type Environment struct {
	Runtime       RuntimeState
	HasCredential bool
}

// Resolve computes the availability of p in env. It is deterministic,
// synchronous, and side-effect free; callers must re-invoke it after any
// change to the provider, credential, or runtime state.
func Resolve(p Provider, env Environment) Availability {
	switch p {
	case ProviderOnDevice:
		if env.Runtime == RuntimeReady {
			return Availability{Available: true}
		}
		return Availability{Reason: env.Runtime.reason()}
	case ProviderCloud:
		if env.HasCredential {
			return Availability{Available: true}
		}
		return Availability{Reason: ReasonCredentialRequired}
	}
	// Stub is always available; unknown providers fall through to the stub
	// path in the dispatcher anyway.
	return Availability{Available: true}
}
