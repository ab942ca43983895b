package registry

import "time"

// Entry represents one managed site. Entries are created by register,
// immutable afterwards, and destroyed by remove.
type Entry struct {
	Domain          string    `json:"domain"`            // <name>.test hostname
	Docroot         string    `json:"docroot"`           // directory served by Apache
	ProjectPath     string    `json:"project_path"`      // project root directory
	CertPath        string    `json:"cert_path"`         // issued certificate
	KeyPath         string    `json:"key_path"`          // issued private key
	VHostConfigPath string    `json:"vhost_config_path"` // generated Apache fragment
	CreatedAt       time.Time `json:"created_at"`
}

// Registry holds all managed sites plus the global settings that belong to
// the operator rather than any single project.
type Registry struct {
	// BasePath is the default directory under which project folders are
	// looked up during interactive registration.
	BasePath string `json:"base_path,omitempty"`

	// Projects maps domain to its entry.
	Projects map[string]Entry `json:"projects"`
}
