package gemini

import "peerprep/interview/internal/llm"

func init() {
	llm.RegisterProvider(ProviderName, func() (llm.Provider, error) {
		config, err := NewConfig()
		if err != nil {
			return nil, err
		}
		return NewClient(config)
	})
}
