package models

const DefaultUserPasscode = "soba"

type AppConfig struct {
	UserPasscode string `json:"userPasscode"`
	CustomLogo   string `json:"customLogo,omitempty"`
}

func DefaultAppConfig() AppConfig {
	return AppConfig{UserPasscode: DefaultUserPasscode}
}

func (config AppConfig) HasCustomLogo() bool {
	return config.CustomLogo != ""
}
