package templates

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"phpvhost/internal/paths"
	"phpvhost/pkg/fileutil"
)

// Template names
const (
	ApacheSite = "apache-site"
)

// defaultApacheSite is the built-in Apache site fragment. It serves the
// project over plain HTTP on 80 and over TLS on 443 with the issued
// certificate. AllowOverride All keeps PHP framework .htaccess rewrites
// working.
const defaultApacheSite = `<VirtualHost *:80>
    ServerName {{.Domain}}
    DocumentRoot "{{.Docroot}}"

    ErrorLog "{{.ErrorLog}}"
    CustomLog "{{.AccessLog}}" combined

    <Directory "{{.Docroot}}">
        AllowOverride All
        Require all granted
    </Directory>
</VirtualHost>

<VirtualHost *:443>
    ServerName {{.Domain}}
    DocumentRoot "{{.Docroot}}"

    SSLEngine on
    SSLCertificateFile "{{.CertPath}}"
    SSLCertificateKeyFile "{{.KeyPath}}"

    ErrorLog "{{.ErrorLog}}"
    CustomLog "{{.AccessLog}}" combined

    <Directory "{{.Docroot}}">
        AllowOverride All
        Require all granted
    </Directory>
</VirtualHost>
`

// builtin maps template names to their embedded defaults.
var builtin = map[string]string{
	ApacheSite: defaultApacheSite,
}

// SearchPaths returns the locations checked for a template override,
// in priority order.
func SearchPaths(name string) []string {
	filename := name + ".template"
	return []string{
		filepath.Join(paths.StateDir(), "templates", filename),
		filepath.Join("/etc/phpvhost/templates", filename),
	}
}

// GetTemplate returns the raw template content by name. An override file in
// one of the search paths wins over the embedded default.
func GetTemplate(name string) (string, error) {
	def, ok := builtin[name]
	if !ok {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	if path := fileutil.SearchPathsOptional(SearchPaths(name)); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading template override %s: %w", path, err)
		}
		return string(content), nil
	}

	return def, nil
}

// Render renders a template using Go's text/template package.
func Render(name string, data interface{}) (string, error) {
	tmplContent, err := GetTemplate(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// ListTemplates returns a list of all available template names.
func ListTemplates() []string {
	return []string{
		ApacheSite,
	}
}
