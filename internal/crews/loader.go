package crews

import (
	"embed"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"finwiz/internal/crew"
	"finwiz/internal/domain/knowledge"
	"finwiz/pkg/errors"
)

//go:embed definitions/*.yaml
var definitionFS embed.FS

// agentSpec is the YAML shape of one agent.
type agentSpec struct {
	Role      string   `yaml:"role"`
	Goal      string   `yaml:"goal"`
	Backstory string   `yaml:"backstory"`
	Tools     []string `yaml:"tools"`
}

// taskSpec is the YAML shape of one task.
type taskSpec struct {
	ID              string   `yaml:"id"`
	Agent           string   `yaml:"agent"`
	Description     string   `yaml:"description"`
	ExpectedOutput  string   `yaml:"expected_output"`
	DependsOn       []string `yaml:"depends_on"`
	AllowConcurrent bool     `yaml:"allow_concurrent"`
	OutputTarget    string   `yaml:"output_target"`
	Category        string   `yaml:"category"`
}

// crewSpec is the YAML shape of a crew definition file.
type crewSpec struct {
	Name    string               `yaml:"name"`
	Process string               `yaml:"process"`
	Agents  map[string]agentSpec `yaml:"agents"`
	Tasks   []taskSpec           `yaml:"tasks"`
}

// Names returns the embedded crew names, sorted.
func Names() []string {
	entries, err := definitionFS.ReadDir("definitions")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Load parses and validates the embedded definition of the named crew.
func Load(name string) (*crew.Definition, error) {
	raw, err := definitionFS.ReadFile("definitions/" + name + ".yaml")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "crew definition %q", name)
	}

	var spec crewSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, &errors.ConfigError{Crew: name, Message: "malformed crew definition", Err: err}
	}

	def, err := build(spec)
	if err != nil {
		return nil, err
	}
	if err := crew.Validate(def); err != nil {
		return nil, err
	}
	return def, nil
}

// LoadAll loads every embedded crew definition.
func LoadAll() (map[string]*crew.Definition, error) {
	defs := make(map[string]*crew.Definition)
	for _, name := range Names() {
		def, err := Load(name)
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}
	return defs, nil
}

func build(spec crewSpec) (*crew.Definition, error) {
	def := &crew.Definition{
		Name:    spec.Name,
		Process: crew.Process(spec.Process),
	}

	for _, t := range spec.Tasks {
		agent, ok := spec.Agents[t.Agent]
		if !ok {
			return nil, &errors.ConfigError{
				Crew:    spec.Name,
				TaskID:  t.ID,
				Message: "references unknown agent " + t.Agent,
			}
		}

		def.Tasks = append(def.Tasks, crew.TaskDescriptor{
			ID:             t.ID,
			Description:    strings.TrimSpace(t.Description),
			ExpectedOutput: strings.TrimSpace(t.ExpectedOutput),
			Worker: crew.AgentRef{
				Name:      t.Agent,
				Role:      agent.Role,
				Goal:      strings.TrimSpace(agent.Goal),
				Backstory: strings.TrimSpace(agent.Backstory),
				Tools:     agent.Tools,
			},
			DependsOn:       t.DependsOn,
			AllowConcurrent: t.AllowConcurrent,
			OutputTarget:    t.OutputTarget,
			Category:        knowledge.Category(t.Category),
		})
	}
	return def, nil
}

// ForAsset returns a copy of the definition specialized to one asset:
// the {asset} placeholder is interpolated and every task is tagged with the
// asset for knowledge write-through.
func ForAsset(def *crew.Definition, asset string) *crew.Definition {
	out := &crew.Definition{
		Name:    def.Name,
		Process: def.Process,
		Tasks:   make([]crew.TaskDescriptor, len(def.Tasks)),
	}

	replace := strings.NewReplacer("{asset}", asset)
	for i, t := range def.Tasks {
		t.Description = replace.Replace(t.Description)
		t.ExpectedOutput = replace.Replace(t.ExpectedOutput)
		t.Worker.Goal = replace.Replace(t.Worker.Goal)
		t.Worker.Backstory = replace.Replace(t.Worker.Backstory)
		t.Asset = asset
		out.Tasks[i] = t
	}
	return out
}
