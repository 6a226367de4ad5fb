// Package manifest renders Kubernetes serving manifests for sized device
// configurations.
package manifest

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.yaml.tmpl
var templateFS embed.FS

var templates *template.Template

func init() {
	var err error
	templates, err = template.New("").ParseFS(templateFS, "templates/*.yaml.tmpl")
	if err != nil {
		panic(fmt.Sprintf("parse manifest templates: %v", err))
	}
}

// ServingParams holds values for rendering the model Deployment + Service.
type ServingParams struct {
	Name          string
	Namespace     string
	ModelID       string // hub identifier passed to the serving engine
	HFToken       string
	EngineVersion string // vllm/vllm-openai image tag
	DeviceName    string // catalog device behind the sizing figures
	DeviceCount   int    // GPUs per replica, doubles as the tensor parallel degree
	InstanceType  string // node selector value, empty schedules anywhere
	MaxModelLen   int    // 0 leaves the engine default
	CPURequest    string
	MemoryRequest string
}

// RenderServing renders the Deployment + Service manifests for a sized
// configuration.
func RenderServing(params ServingParams) (string, error) {
	return renderTemplate("serving.yaml.tmpl", params)
}

func renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// NameForModel derives a DNS-1123 object name from a model identifier.
func NameForModel(modelID string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(modelID))
	mapped = strings.Trim(mapped, "-")
	if mapped == "" {
		mapped = "model"
	}
	// "serve-" plus the mapped ID must stay within the 63-char name limit.
	if len(mapped) > 57 {
		mapped = strings.Trim(mapped[:57], "-")
	}
	return "serve-" + mapped
}
