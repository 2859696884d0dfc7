package assist

// ---------------------------------------------------------------------------
// Cloud model allow-list
// ---------------------------------------------------------------------------

// ModelInfo holds static metadata for an allowed cloud model.
type ModelInfo struct {
	// ID is the identifier sent in the chat-completions request.
	ID string

	// DisplayName is a short human-readable name.
	DisplayName string

	// ContextWindow is the maximum number of input tokens.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model will generate.
	MaxOutputTokens int
}

// cloudModels is the fixed allow-list of remote model identifiers. Order
// matters: the first entry is the default selection.
var cloudModels = []ModelInfo{
	{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini", ContextWindow: 128000, MaxOutputTokens: 16384},
	{ID: "gpt-4o", DisplayName: "GPT-4o", ContextWindow: 128000, MaxOutputTokens: 16384},
	{ID: "gpt-4.1-mini", DisplayName: "GPT-4.1 mini", ContextWindow: 1000000, MaxOutputTokens: 32768},
	{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", ContextWindow: 16385, MaxOutputTokens: 4096},
}

// CloudModels returns the allow-list in selection order.
func CloudModels() []ModelInfo {
	out := make([]ModelInfo, len(cloudModels))
	copy(out, cloudModels)
	return out
}

// DefaultCloudModel returns the identifier of the default cloud model.
func DefaultCloudModel() string {
	return cloudModels[0].ID
}

// IsAllowedCloudModel reports whether id is in the allow-list.
func IsAllowedCloudModel(id string) bool {
	for _, m := range cloudModels {
		if m.ID == id {
			return true
		}
	}
	return false
}

// LookupModel returns the ModelInfo for id, or nil if it is not allowed.
func LookupModel(id string) *ModelInfo {
	for i := range cloudModels {
		if cloudModels[i].ID == id {
			return &cloudModels[i]
		}
	}
	return nil
}
