package seedfile

// SeedConfig represents the top-level structure of the seed YAML file.
type SeedConfig struct {
	Services []ServiceEntry `yaml:"services"`
}

// ServiceEntry is one service definition as written by an operator.
type ServiceEntry struct {
	Name        string `yaml:"name"`
	Provider    string `yaml:"provider,omitempty"`
	Type        string `yaml:"type"`
	URL         string `yaml:"url"`
	MetadataURL string `yaml:"metadata_url,omitempty"`
	InfoURL     string `yaml:"info_url,omitempty"`
	Contact     string `yaml:"contact,omitempty"`
	Active      bool   `yaml:"active,omitempty"`
}
