/*
Package cfg holds the cadfael configuration: global command line flags and
the settings which can be overridden by the settings file and environment.
*/
package cfg

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/r-che/cadfael/common/fschecks"
	"github.com/r-che/cadfael/common/parse"
	"github.com/r-che/cadfael/crawler"
	"github.com/r-che/cadfael/enrich/macho"
	"github.com/r-che/cadfael/types/dbms"
)

// Defaults
const (
	DefaultDB	=	"mongodb://127.0.0.1:27017"
	DefaultDBID	=	"cadfael"

	// Prefix of environment variables overriding settings
	EnvPrefix	=	"CADFAEL"
)

// Settings keys
const (
	KeyModules		=	"modules"
	KeyFaults		=	"faults"
	KeyWorkers		=	"workers"
	KeyPollInterval	=	"poll_interval"
	KeyHashChunk	=	"hash_chunk"
	KeyCodesign		=	"codesign"
)

// Names of enrichment modules which can be enabled by the modules setting
var KnownModules = []string{macho.ModuleName}

type ProgConfig struct {
	// Global flags
	DBCfg		dbms.DBConfig
	DBPrivCfg	string	// path to file with DBMS-specific private data - username/password and so on
	DBReadOnly	bool	// do not update any information in database
	Settings	string	// path to settings override file
	Quiet		bool
	LogFile		string
	Debug		bool
	NoLogTS		bool

	// Settings
	Modules			[]string		// names of enabled enrichment modules in order of running
	Faults			string			// directory to save files failed enrichment, empty - do not save
	Workers			int				// number of crawler workers, 0 - number of CPUs
	PollInterval	time.Duration	// interval of crawl progress reports
	HashChunk		int				// size of chunks to calculate checksums
	Codesign		[]string		// code signing inspector command
}

func New() *ProgConfig {
	return &ProgConfig{}
}

// AddFlags registers global flags in fs
func (pc *ProgConfig) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&pc.DBCfg.HostPort, "db", DefaultDB,
		"catalog database address, the scheme selects the backend: mongodb://, redis://, memory://")
	fs.StringVar(&pc.DBCfg.ID, "dbid", DefaultDBID, "database identifier - name, key prefix and so on")
	fs.StringVar(&pc.DBPrivCfg, "db-priv-cfg", "",
		"path to the JSON file with private data specific to the particular DBMS - user/pass, etc...")
	fs.BoolVar(&pc.DBReadOnly, "db-readonly", false,
		"do not perform any database updates (read-only mode), can be used for debugging")
	fs.StringVarP(&pc.Settings, "settings", "s", "",
		"path to the settings override file (yaml, json or toml)")
	fs.BoolVarP(&pc.Quiet, "quiet", "q", false, "be quiet, do not print banner and summary")
	fs.StringVarP(&pc.LogFile, "log-file", "l", "", "path to the log file, standard error by default")
	fs.BoolVarP(&pc.Debug, "debug", "d", false, "enable debug logging")
	fs.BoolVar(&pc.NoLogTS, "nologts", false, "disable log timestamps")
}

// Prepare loads private database configuration and settings, it must be called after flags parsing
func (pc *ProgConfig) Prepare() error {
	pc.DBCfg.ReadOnly = pc.DBReadOnly

	if err := pc.loadPriv(); err != nil {
		return err
	}

	return pc.loadSettings()
}

func (pc *ProgConfig) Clone() *ProgConfig {
	rv := *pc

	rv.Modules = append([]string(nil), pc.Modules...)
	rv.Codesign = append([]string(nil), pc.Codesign...)

	return &rv
}

func (pc *ProgConfig) loadPriv() error {
	// Return if no private data was set
	if pc.DBPrivCfg == "" {
		// OK
		return nil
	}

	// Check correctness of ownership/permissions of the private file
	if err := fschecks.PrivOwnership(pc.DBPrivCfg); err != nil {
		return fmt.Errorf("failed to check ownership/mode the private configuration of DB: %w", err)
	}

	// Read configuration file
	data, err := os.ReadFile(pc.DBPrivCfg)
	if err != nil {
		return fmt.Errorf("cannot read private database configuration: %w", err)
	}

	// Parse JSON, load it to configuration
	pc.DBCfg.PrivCfg = map[string]any{}
	if err = json.Unmarshal(data, &pc.DBCfg.PrivCfg); err != nil {
		return fmt.Errorf("cannot decode private database configuration %q: %w", pc.DBPrivCfg, err)
	}

	// OK
	return nil
}

func (pc *ProgConfig) loadSettings() error {
	v := viper.New()

	v.SetDefault(KeyModules, []string{macho.ModuleName})
	v.SetDefault(KeyFaults, "")
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyPollInterval, crawler.DefaultPollInterval)
	v.SetDefault(KeyHashChunk, crawler.DefaultHashChunk)
	v.SetDefault(KeyCodesign, append([]string(nil), macho.DefaultCodesign...))

	// CADFAEL_WORKERS, CADFAEL_POLL_INTERVAL and so on
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if pc.Settings != "" {
		v.SetConfigFile(pc.Settings)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("cannot read settings file %q: %w", pc.Settings, err)
		}
	}

	modules, err := parse.List(KeyModules, v.GetStringSlice(KeyModules), KnownModules...)
	if err != nil {
		return err
	}
	pc.Modules = modules
	pc.Faults = v.GetString(KeyFaults)
	pc.Workers = v.GetInt(KeyWorkers)
	pc.PollInterval = v.GetDuration(KeyPollInterval)
	pc.HashChunk = v.GetInt(KeyHashChunk)
	pc.Codesign = v.GetStringSlice(KeyCodesign)

	switch {
		case pc.Workers < 0:
			return fmt.Errorf("invalid %s value %d, must not be negative", KeyWorkers, pc.Workers)
		case pc.HashChunk <= 0:
			return fmt.Errorf("invalid %s value %d, must be positive", KeyHashChunk, pc.HashChunk)
		case pc.PollInterval <= 0:
			return fmt.Errorf("invalid %s value %v, must be positive", KeyPollInterval, pc.PollInterval)
		case len(pc.Codesign) == 0:
			return fmt.Errorf("empty %s command", KeyCodesign)
	}

	// OK
	return nil
}
