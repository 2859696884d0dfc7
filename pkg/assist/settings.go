package assist

import "sync"

// SettingsSource provides the current provider/model/credential selection.
// The dispatcher reads it at the start of each request, so changes take
// effect on the next prompt. pkg/settings provides a durable implementation;
// MemorySettings is the in-process one.
type SettingsSource interface {
	// Provider returns the selected provider.
	Provider() (Provider, error)

	// Model returns the selected cloud model identifier.
	Model() (string, error)

	// Credential returns the cloud bearer credential. Empty string means
	// "not configured".
	Credential() (string, error)
}

// MemorySettings is an in-process SettingsSource with explicit read/write
// accessors. The zero value defaults to the on-device provider and the first
// entry of the cloud model allow-list.
type MemorySettings struct {
	mu         sync.Mutex
	provider   Provider
	model      string
	credential string
}

func (m *MemorySettings) Provider() (Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.provider == "" {
		return ProviderOnDevice, nil
	}
	return m.provider, nil
}

func (m *MemorySettings) SetProvider(p Provider) {
	m.mu.Lock()
	m.provider = p
	m.mu.Unlock()
}

func (m *MemorySettings) Model() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model == "" {
		return DefaultCloudModel(), nil
	}
	return m.model, nil
}

func (m *MemorySettings) SetModel(id string) {
	m.mu.Lock()
	m.model = id
	m.mu.Unlock()
}

func (m *MemorySettings) Credential() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential, nil
}

func (m *MemorySettings) SetCredential(c string) {
	m.mu.Lock()
	m.credential = c
	m.mu.Unlock()
}
