package channel

// ChannelTemplate is the static catalog entry of a channel type.
type ChannelTemplate struct {
	Type              ChannelType `json:"type"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	Icon              string      `json:"icon"`
	SetupSteps        []string    `json:"setup_steps"`
	Requirements      []string    `json:"requirements"`
	Features          []string    `json:"features"`
	EmbedCodeTemplate string      `json:"embed_code_template,omitempty"`
}

func (t ChannelTemplate) HasEmbed() bool {
	return t.EmbedCodeTemplate != ""
}

func (t ChannelTemplate) Clone() ChannelTemplate {
	out := t
	out.SetupSteps = append([]string(nil), t.SetupSteps...)
	out.Requirements = append([]string(nil), t.Requirements...)
	out.Features = append([]string(nil), t.Features...)
	return out
}
