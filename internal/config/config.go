// Package config loads the catalog file that drives column aliases, value
// synonyms and the business rules of the KPI pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"ticket-kpi-exporter/internal/filter"
	"ticket-kpi-exporter/internal/normalize"
	"ticket-kpi-exporter/internal/preprocess"
	"ticket-kpi-exporter/internal/schema"
)

// DefaultPath is where the catalog is looked up when no path is given.
const DefaultPath = "config/catalog.yaml"

type Config struct {
	ListenAddr     string `yaml:"listen_addr"`
	ReloadInterval string `yaml:"reload_interval"`
	TicketsFile    string `yaml:"tickets_file"`
	LoginsFile     string `yaml:"logins_file"`
	Timezone       string `yaml:"timezone"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	WorkHours struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"work_hours"`
	Holidays     []string `yaml:"holidays"`
	HolidaysFile string   `yaml:"holidays_file"`

	ResolvedStates         []string       `yaml:"resolved_states"`
	ProductiveEnvironments []string       `yaml:"productive_environments"`
	MonthNames             map[int]string `yaml:"month_names"`
	DateLayouts            []string       `yaml:"date_layouts"`

	SupportTeam struct {
		Keywords []string `yaml:"keywords"`
		Label    string   `yaml:"label"`
	} `yaml:"support_team"`

	// Columns adds header synonyms per record type and canonical field.
	Columns struct {
		Tickets map[string][]string `yaml:"tickets"`
		Logins  map[string][]string `yaml:"logins"`
	} `yaml:"columns"`

	// Values replaces the canonical value set of categorical ticket fields.
	Values map[string][]schema.CategoryValue `yaml:"values"`
}

// Default returns the built-in catalog.
func Default() *Config {
	c := &Config{
		ListenAddr:     ":9100",
		ReloadInterval: "5m",
		Timezone:       "UTC",
	}
	c.ResolvedStates = []string{"resuelto", "cerrado", "solucionado", "resueltos", "resolved", "closed"}
	c.ProductiveEnvironments = []string{"prod (cliente)", "produccion", "prod"}
	c.MonthNames = map[int]string{
		1: "Enero", 2: "Febrero", 3: "Marzo", 4: "Abril", 5: "Mayo", 6: "Junio",
		7: "Julio", 8: "Agosto", 9: "Septiembre", 10: "Octubre", 11: "Noviembre", 12: "Diciembre",
	}
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.SupportTeam.Keywords = []string{"soporte", "support"}
	c.SupportTeam.Label = "Soporte"
	return c
}

// Load decodes the file at path over the defaults. Sections the file omits
// keep their default value.
func Load(path string) (*Config, error) {
	c := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return c, nil
}

// Interval parses the reload interval. Zero disables reloading.
func (c *Config) Interval() (time.Duration, error) {
	if c.ReloadInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ReloadInterval)
	if err != nil {
		return 0, fmt.Errorf("parse reload_interval: %w", err)
	}
	return d, nil
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Registries builds the ticket and login schemas from the defaults plus
// the configured synonyms.
func (c *Config) Registries() (tickets, logins *schema.Registry, err error) {
	values := make(map[string][]schema.CategoryValue, len(c.Values)+1)
	for k, v := range c.Values {
		values[k] = v
	}
	if _, ok := values[schema.FieldStatus]; !ok {
		values[schema.FieldStatus] = c.statusValues()
	}

	fields, err := schema.Override(schema.DefaultTicketFields(), c.Columns.Tickets, values)
	if err != nil {
		return nil, nil, fmt.Errorf("tickets schema: %w", err)
	}
	if tickets, err = schema.New("tickets", fields); err != nil {
		return nil, nil, err
	}

	fields, err = schema.Override(schema.DefaultLoginFields(), c.Columns.Logins, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("logins schema: %w", err)
	}
	if logins, err = schema.New("logins", fields); err != nil {
		return nil, nil, err
	}
	return tickets, logins, nil
}

// statusValues extends the resolved status synonyms with resolved_states.
func (c *Config) statusValues() []schema.CategoryValue {
	values := schema.StatusValues()
	for i := range values {
		if values[i].Label == schema.StatusResolved {
			values[i].Synonyms = append(values[i].Synonyms, c.ResolvedStates...)
		}
	}
	return values
}

func (c *Config) NormalizerOptions() (normalize.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return normalize.Options{}, err
	}
	return normalize.Options{
		DateLayouts: c.DateLayouts,
		MonthNames:  c.MonthNames,
		Location:    loc,
	}, nil
}

// PreprocessOptions builds the preprocessor catalogs. Holidays come from
// the inline list and the holidays file.
func (c *Config) PreprocessOptions(asOf time.Time) (preprocess.Options, error) {
	opts := preprocess.DefaultOptions(asOf)
	opts.ResolvedStatuses = c.ResolvedStates
	opts.ProductiveEnvironments = c.ProductiveEnvironments
	if v, ok := c.Values[schema.FieldPriority]; ok {
		opts.PriorityOrder = labels(v)
	}
	if v, ok := c.Values[schema.FieldStatus]; ok {
		opts.StatusLabels = labels(v)
	}

	holidays := append([]string(nil), c.Holidays...)
	if c.HolidaysFile != "" {
		fromFile, err := LoadHolidaysFromFile(c.HolidaysFile)
		if err != nil {
			return preprocess.Options{}, fmt.Errorf("load holidays: %w", err)
		}
		holidays = append(holidays, fromFile...)
	}
	hours, err := preprocess.NewBusinessHours(c.WorkHours.Start, c.WorkHours.End, holidays)
	if err != nil {
		return preprocess.Options{}, err
	}
	opts.BusinessHours = hours
	return opts, nil
}

func (c *Config) TeamCatalog() filter.TeamCatalog {
	return filter.TeamCatalog{
		SupportKeywords: c.SupportTeam.Keywords,
		SupportLabel:    c.SupportTeam.Label,
	}
}

func labels(values []schema.CategoryValue) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Label)
	}
	return out
}
