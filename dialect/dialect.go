// Package dialect describes the command/response protocols spoken by A/V
// receivers over RS-232.
//
// A Dialect bundles everything needed to talk to one protocol variant: the
// line terminator, command templates, the ordered response patterns used to
// classify replies, and the timing parameters the device expects. Dialects
// are immutable once parsed and safe for concurrent use.
//
// The package also carries an embedded catalog of known dialects and device
// models, see Load and LookupModel.
package dialect

import (
	"fmt"
	"regexp"
	"slices"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxVolume is the volume clamp applied when neither the dialect
	// nor the device model sets one.
	DefaultMaxVolume = 100

	// DefaultTimeout is the read timeout used when the dialect does not
	// declare one.
	DefaultTimeout = time.Second

	// DefaultVolumeArg is the argument name carrying the volume level for
	// volume-setting commands.
	DefaultVolumeArg = "volume"
)

// Dialect is a protocol variant's complete set of command templates,
// response patterns and timing parameters.
type Dialect struct {
	name           string
	description    string
	terminator     []byte
	encoding       Encoding
	minInterval    time.Duration
	timeout        time.Duration
	powerOnDelay   time.Duration
	maxVolume      int
	volumeArg      string
	volumeCommands map[string]bool
	statusResponse string
	commands       map[string]*template.Template
	responses      []response
	sentinels      []sentinel
}

// response is a compiled response descriptor.
type response struct {
	name     string
	re       *regexp.Regexp
	booleans map[string]bool
}

// sentinel is a compiled "zone off" reply.
type sentinel struct {
	re   *regexp.Regexp
	zone int
}

// definition is the YAML shape of a dialect file.
type definition struct {
	Name           string            `yaml:"name"`
	Description    string            `yaml:"description"`
	Terminator     string            `yaml:"terminator"`
	Encoding       string            `yaml:"encoding"`
	MinInterval    time.Duration     `yaml:"min_interval"`
	Timeout        time.Duration     `yaml:"timeout"`
	PowerOnDelay   time.Duration     `yaml:"power_on_delay"`
	MaxVolume      int               `yaml:"max_volume"`
	VolumeArg      string            `yaml:"volume_arg"`
	VolumeCommands []string          `yaml:"volume_commands"`
	StatusResponse string            `yaml:"status_response"`
	Booleans       []string          `yaml:"booleans"`
	Commands       map[string]string `yaml:"commands"`
	Responses      []struct {
		Name     string   `yaml:"name"`
		Pattern  string   `yaml:"pattern"`
		Booleans []string `yaml:"booleans"`
	} `yaml:"responses"`
	Sentinels []struct {
		Pattern string `yaml:"pattern"`
		Zone    int    `yaml:"zone"`
	} `yaml:"sentinels"`
}

// Parse builds a Dialect from its YAML definition. Templates and patterns
// are compiled once here; a definition that does not compile is rejected
// with ErrInvalidDialect.
func Parse(data []byte) (*Dialect, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDialect, err)
	}
	return compile(def)
}

func compile(def definition) (*Dialect, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDialect)
	}
	if def.Terminator == "" {
		return nil, fmt.Errorf("%w: %s: terminator is required", ErrInvalidDialect, def.Name)
	}
	if len(def.Commands) == 0 {
		return nil, fmt.Errorf("%w: %s: no commands defined", ErrInvalidDialect, def.Name)
	}

	enc, err := ParseEncoding(def.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDialect, def.Name, err)
	}

	d := &Dialect{
		name:           def.Name,
		description:    def.Description,
		terminator:     []byte(def.Terminator),
		encoding:       enc,
		minInterval:    def.MinInterval,
		timeout:        def.Timeout,
		powerOnDelay:   def.PowerOnDelay,
		maxVolume:      def.MaxVolume,
		volumeArg:      def.VolumeArg,
		volumeCommands: make(map[string]bool, len(def.VolumeCommands)),
		statusResponse: def.StatusResponse,
		commands:       make(map[string]*template.Template, len(def.Commands)),
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.maxVolume <= 0 {
		d.maxVolume = DefaultMaxVolume
	}
	if d.volumeArg == "" {
		d.volumeArg = DefaultVolumeArg
	}
	if d.minInterval < 0 || d.powerOnDelay < 0 {
		return nil, fmt.Errorf("%w: %s: negative duration", ErrInvalidDialect, def.Name)
	}

	for name, text := range def.Commands {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: command %q: %v", ErrInvalidDialect, def.Name, name, err)
		}
		d.commands[name] = tmpl
	}

	for _, name := range def.VolumeCommands {
		if _, ok := d.commands[name]; !ok {
			return nil, fmt.Errorf("%w: %s: volume command %q is not defined", ErrInvalidDialect, def.Name, name)
		}
		d.volumeCommands[name] = true
	}

	for _, r := range def.Responses {
		if r.Name == "" || r.Pattern == "" {
			return nil, fmt.Errorf("%w: %s: response needs a name and a pattern", ErrInvalidDialect, def.Name)
		}
		re, err := regexp.Compile("^(?:" + r.Pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: response %q: %v", ErrInvalidDialect, def.Name, r.Name, err)
		}
		booleans := make(map[string]bool)
		for _, f := range slices.Concat(def.Booleans, r.Booleans) {
			booleans[f] = true
		}
		d.responses = append(d.responses, response{name: r.Name, re: re, booleans: booleans})
	}

	if d.statusResponse != "" && !slices.ContainsFunc(d.responses, func(r response) bool {
		return r.name == d.statusResponse
	}) {
		return nil, fmt.Errorf("%w: %s: status response %q is not defined", ErrInvalidDialect, def.Name, d.statusResponse)
	}

	for _, s := range def.Sentinels {
		re, err := regexp.Compile("^(?:" + s.Pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: sentinel %q: %v", ErrInvalidDialect, def.Name, s.Pattern, err)
		}
		d.sentinels = append(d.sentinels, sentinel{re: re, zone: s.Zone})
	}

	return d, nil
}

// Name returns the protocol name, e.g. "anthem_d2".
func (d *Dialect) Name() string { return d.name }

// Description returns the human readable description of the protocol.
func (d *Dialect) Description() string { return d.description }

// Terminator returns a copy of the line terminator.
func (d *Dialect) Terminator() []byte { return slices.Clone(d.terminator) }

// Encoding returns the wire encoding of commands and replies.
func (d *Dialect) Encoding() Encoding { return d.encoding }

// MinInterval is the minimum spacing between two transmissions.
func (d *Dialect) MinInterval() time.Duration { return d.minInterval }

// Timeout is the default time allowed for a reply to arrive.
func (d *Dialect) Timeout() time.Duration { return d.timeout }

// PowerOnDelay is the warm-up period during which the device ignores
// commands after being powered on. Zero means none.
func (d *Dialect) PowerOnDelay() time.Duration { return d.powerOnDelay }

// MaxVolume is the upper bound volume levels are clamped to.
func (d *Dialect) MaxVolume() int { return d.maxVolume }

// StatusResponse names the response pattern of a structured zone status
// reply, which is only ever sent for a powered zone.
func (d *Dialect) StatusResponse() string { return d.statusResponse }

// Commands returns the sorted names of all commands in the template table.
func (d *Dialect) Commands() []string {
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HasCommand reports whether name is part of the template table.
func (d *Dialect) HasCommand(name string) bool {
	_, ok := d.commands[name]
	return ok
}

// WithMaxVolume returns a copy of the dialect clamping volume levels to
// limit instead. Values <= 0 keep the current limit.
func (d *Dialect) WithMaxVolume(limit int) *Dialect {
	c := *d
	if limit > 0 {
		c.maxVolume = limit
	}
	return &c
}

func (d *Dialect) String() string {
	return d.name
}
