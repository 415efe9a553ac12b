package fluxmaps

import(
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/fluxmaps/pkg/foreground"
)

/* Example config file ...

output_dir: output
work_dir: .
fore_files:
  - {file: fore/gll_100.fits, energy: 100.0}
  - {file: fore/gll_1000.fits, energy: 1000.0}
macro_bins: [[0, 3], [3, 6]]
power_law_index: 2.4
out_label: P8R3_SOURCE
mask_label: gp30
fore_label: gll
binning_label: 2bins
in_labels: [year1, year2]
mask_file: masks/gp30.fits
micro_bins_file: ebins/ebounds.fits
preview:
  enabled: true
  width: 800
spectrum_plot: true

*/

// MacroBin is the micro bin index range [Min,Max). In yaml it is a pair, [min, max].
type MacroBin struct {
	Min, Max int
}

func (mb MacroBin)String() string { return fmt.Sprintf("[%d,%d)", mb.Min, mb.Max) }

func (mb *MacroBin)UnmarshalYAML(unmarshal func(interface{}) error) error {
	pair := []int{}
	if err := unmarshal(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: macro bin %v is not a [min, max] pair", ErrBadConfig, pair)
	}
	mb.Min, mb.Max = pair[0], pair[1]
	return nil
}

func (mb MacroBin)MarshalYAML() (interface{}, error) {
	return []int{mb.Min, mb.Max}, nil
}

// MaskFiles holds one mask path per macro bin. In yaml it is either a
// single path, or a list of paths.
type MaskFiles []string

func (mf *MaskFiles)UnmarshalYAML(unmarshal func(interface{}) error) error {
	single := ""
	if err := unmarshal(&single); err == nil {
		*mf = MaskFiles{single}
		return nil
	}
	list := []string{}
	if err := unmarshal(&list); err != nil {
		return fmt.Errorf("%w: mask_file must be a path or a list of paths", ErrBadConfig)
	}
	*mf = MaskFiles(list)
	return nil
}

type PreviewOptions struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width"`
}

type Config struct {
	OutputDir     string             `yaml:"output_dir"`  // where the per-label manifests live
	WorkDir       string             `yaml:"work_dir"`    // output_count/, output_flux/, output_fore/ and the report go here

	ForeFiles     []foreground.Node  `yaml:"fore_files"`
	MacroBins     []MacroBin         `yaml:"macro_bins"`
	PowerLawIndex float64            `yaml:"power_law_index"`
	OutLabel      string             `yaml:"out_label"`
	MaskLabel     string             `yaml:"mask_label"`
	ForeLabel     string             `yaml:"fore_label"`
	BinningLabel  string             `yaml:"binning_label"`
	InLabels      []string           `yaml:"in_labels"`
	MaskFiles     MaskFiles          `yaml:"mask_file"`
	MicroBinsFile string             `yaml:"micro_bins_file"`

	Preview       PreviewOptions     `yaml:"preview"`
	SpectrumPlot  bool               `yaml:"spectrum_plot"`

	keys          map[string]bool    // the top level keys present in the yaml, if loaded from yaml
}

func NewConfig() Config {
	return Config{
		OutputDir: "output",
		WorkDir: ".",
		Preview: PreviewOptions{Width: 800},
	}
}

func NewConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return c, err
	}
	c.keys = map[string]bool{}
	for k := range raw {
		c.keys[k] = true
	}
	return c, nil
}

// LoadConfig reads a yaml config file. It still needs to be Finalized.
func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return NewConfig(), fmt.Errorf("read '%s': %w", filename, err)
	}
	c, err := NewConfigFromYaml(contents)
	if err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}
	return c, nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("# can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Finalize fills in defaults, checks the required keys are all there (the
// foreground files only matter if we subtract the foreground), and expands
// a single mask file to one per macro bin. Every problem found is reported.
func (c *Config)Finalize(foreSub bool) error {
	if c.OutputDir == "" { c.OutputDir = "output" }
	if c.WorkDir == ""   { c.WorkDir = "." }
	if c.Preview.Width <= 0 { c.Preview.Width = 800 }

	var errs error
	missing := func(key string, empty bool) {
		if empty || (c.keys != nil && !c.keys[key]) {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrMissingConfigKey, key))
		}
	}

	if foreSub {
		missing("fore_files", len(c.ForeFiles) == 0)
	}
	missing("macro_bins", len(c.MacroBins) == 0)
	missing("power_law_index", false)
	missing("out_label", c.OutLabel == "")
	missing("mask_label", c.MaskLabel == "")
	missing("fore_label", c.ForeLabel == "")
	missing("binning_label", c.BinningLabel == "")
	missing("in_labels", len(c.InLabels) == 0)
	missing("mask_file", len(c.MaskFiles) == 0)
	missing("micro_bins_file", c.MicroBinsFile == "")

	for i, mb := range c.MacroBins {
		if mb.Min < 0 || mb.Max <= mb.Min {
			errs = multierr.Append(errs, fmt.Errorf("%w: macro bin %d is %s", ErrBadConfig, i, mb))
		} else if i > 0 && mb.Min <= c.MacroBins[i-1].Min {
			errs = multierr.Append(errs, fmt.Errorf("%w: macro bin %d %s out of ascending order", ErrBadConfig, i, mb))
		}
	}

	if len(c.MaskFiles) == 1 && len(c.MacroBins) > 1 {
		single := c.MaskFiles[0]
		c.MaskFiles = make(MaskFiles, len(c.MacroBins))
		for i := range c.MaskFiles {
			c.MaskFiles[i] = single
		}
	} else if len(c.MaskFiles) > 0 && len(c.MaskFiles) != len(c.MacroBins) {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d mask files for %d macro bins", ErrBadConfig,
			len(c.MaskFiles), len(c.MacroBins)))
	}

	return errs
}

func (c Config)ManifestPath(label string) string {
	return filepath.Join(c.OutputDir, label+"_outfiles.txt")
}

func (c Config)CountDir() string { return filepath.Join(c.WorkDir, "output_count") }
func (c Config)FluxDir() string  { return filepath.Join(c.WorkDir, "output_flux") }
func (c Config)ForeDir() string  { return filepath.Join(c.WorkDir, "output_fore") }

func (c Config)FluxMapName(variant string, emin, emax float64) string {
	return filepath.Join(c.FluxDir(), fmt.Sprintf("%s_%s_%s_%s_%d-%d.fits", c.OutLabel, c.MaskLabel, c.ForeLabel,
		variant, int(emin), int(emax)))
}

func (c Config)ReportPath() string {
	return filepath.Join(c.WorkDir, fmt.Sprintf("%s_%s_%s_datafluxmaps.txt", c.OutLabel, c.MaskLabel, c.BinningLabel))
}

func (c Config)SpectrumPlotPath() string {
	return filepath.Join(c.WorkDir, fmt.Sprintf("%s_%s_%s_datafluxmaps.png", c.OutLabel, c.MaskLabel, c.BinningLabel))
}
