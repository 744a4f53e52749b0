// Package harness holds the run-level plumbing of a shift experiment:
// the argument set with its validation and run-directory naming, kwarg
// parsing, and the environment probes used for distributed launches.
package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// Config is the full argument set of one experiment run.
//
// Field names follow the snake_case argument names in their json tags;
// those names are also what Fields, Get and Set use. Method selector
// flags (disc, jtt, ...) are mutually exclusive in practice, and RunDir
// resolves them in a fixed precedence order.
type Config struct {
	// Data
	Dataset          string   `json:"dataset"`
	ShiftType        string   `json:"shift_type"`
	ConfounderNames  []string `json:"confounder_names"`
	TargetName       string   `json:"target_name"`
	MinorityFraction float64  `json:"minority_fraction"`
	ImbalanceRatio   float64  `json:"imbalance_ratio"`

	// Model
	Model            string `json:"model"`
	FeatureType      string `json:"feature_type"`
	TrainFromScratch bool   `json:"train_from_scratch"`
	PretrainedPath   string `json:"pretrained_path"`
	Resume           bool   `json:"resume"`

	// Optimization
	LR             float64 `json:"lr"`
	BatchSize      int     `json:"batch_size"`
	NEpochs        int     `json:"n_epochs"`
	Optimizer      string  `json:"optimizer"`
	Scheduler      string  `json:"scheduler"`
	WeightDecay    float64 `json:"weight_decay"`
	NumWarmupSteps int     `json:"num_warmup_steps"`
	StepGamma      float64 `json:"step_gamma"`
	Seed           int64   `json:"seed"`

	// Sampling
	ReweightGroups bool `json:"reweight_groups"`
	AugmentData    bool `json:"augment_data"`

	// Method: DISC
	DISC              bool    `json:"disc"`
	ConceptCategories string  `json:"concept_categories"`
	NConceptImgs      float64 `json:"n_concept_imgs"`
	NClusters         int     `json:"n_clusters"`
	ErmPath           string  `json:"erm_path"`

	// Method: LISA
	LISAMixUp bool    `json:"lisa_mix_up"`
	MixRatio  float64 `json:"mix_ratio"`
	MixAlpha  float64 `json:"mix_alpha"`
	CutMix    bool    `json:"cut_mix"`
	Alpha     float64 `json:"alpha"`

	// Method: JTT
	JTT         bool    `json:"jtt"`
	JTTUpweight float64 `json:"jtt_upweight"`

	// Method: invariance penalties
	REx          bool    `json:"rex"`
	RExPenalty   float64 `json:"rex_penalty"`
	IRM          bool    `json:"irm"`
	IRMPenalty   float64 `json:"irm_penalty"`
	IBIRM        bool    `json:"ibirm"`
	IBIRMPenalty float64 `json:"ibirm_penalty"`

	// Method: Fish
	Fish   bool    `json:"fish"`
	MetaLR float64 `json:"meta_lr"`

	// Method: GroupDRO
	Robust         bool    `json:"robust"`
	RobustStepSize float64 `json:"robust_step_size"`

	// Method: deep Coral
	Coral bool `json:"coral"`

	// Output
	LogDir string `json:"log_dir"`
	Kwargs Kwargs `json:"kwargs"`
}

// Default returns a config with the usual starting hyperparameters for a
// confounder-shift run. Callers override what their experiment changes.
func Default() *Config {
	return &Config{
		Dataset:        "CUB",
		ShiftType:      "confounder",
		Model:          "resnet50",
		LR:             0.001,
		BatchSize:      128,
		NEpochs:        300,
		Optimizer:      "SGD",
		WeightDecay:    1e-4,
		StepGamma:      0.96,
		NConceptImgs:   200,
		NClusters:      10,
		MixRatio:       0.5,
		MixAlpha:       2,
		Alpha:          1,
		JTTUpweight:    100,
		RobustStepSize: 0.01,
		LogDir:         "./logs",
	}
}

// LoadConfig reads a JSON run configuration. Missing fields keep their
// Default values, so a file only needs the settings it changes.
func LoadConfig(path string) (*Config, error) {
	c := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return c, nil
}

// Save writes the config as indented JSON. The write goes through a
// temporary file and a rename, so a crash never leaves a half-written
// config behind.
func (c *Config) Save(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Fields returns the argument names in declaration order.
func (c *Config) Fields() []string {
	t := reflect.TypeOf(*c)
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fields = append(fields, jsonName(t.Field(i)))
	}
	return fields
}

// Get returns the value of the named argument.
func (c *Config) Get(name string) (any, error) {
	v, ok := c.fieldByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown config field %q", name)
	}
	return v.Interface(), nil
}

// Set parses value into the named argument. Slices parse from
// comma-separated values, kwargs from whitespace-separated key=value
// pairs.
func (c *Config) Set(name, value string) error {
	v, ok := c.fieldByName(name)
	if !ok {
		return fmt.Errorf("unknown config field %q", name)
	}

	switch v.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		v.SetInt(n)
	case reflect.Float64:
		x, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		v.SetFloat(x)
	case reflect.String:
		v.SetString(value)
	case reflect.Slice:
		if value == "" {
			v.Set(reflect.ValueOf([]string(nil)))
			return nil
		}
		v.Set(reflect.ValueOf(strings.Split(value, ",")))
	case reflect.Map:
		kwargs, err := ParseKwargs(strings.Fields(value))
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		v.Set(reflect.ValueOf(kwargs))
	default:
		return fmt.Errorf("field %q has unsupported kind %s", name, v.Kind())
	}
	return nil
}

// LogFields writes every argument as a "Name: value" line, with
// underscores turned into spaces and the first letter capitalized,
// followed by a blank line. Run logs start with this block so a result
// is always traceable to its exact configuration.
func (c *Config) LogFields(w io.Writer) error {
	v := reflect.ValueOf(*c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := displayName(jsonName(t.Field(i)))
		if _, err := fmt.Fprintf(w, "%s: %v\n", name, v.Field(i).Interface()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func (c *Config) fieldByName(name string) (reflect.Value, bool) {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if jsonName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if i := strings.IndexByte(tag, ','); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

// displayName turns "n_epochs" into "N epochs".
func displayName(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
