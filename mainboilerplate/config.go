package mainboilerplate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ConfigRootEnv names an environment variable holding an additional
// directory searched for the INI file.
const ConfigRootEnv = "AXMLTOOLS_CONFIG_ROOT"

// ConfigPaths returns candidate paths of INI file |configName|, in order of
// preference:
//   - The current working directory.
//   - ~/.config/axmltools (under the user's $HOME or %UserProfile% directory).
//   - $AXMLTOOLS_CONFIG_ROOT
func ConfigPaths(configName string) []string {
	var dirs = []string{
		".",
		filepath.Join(os.Getenv("HOME"), ".config", "axmltools"),
		filepath.Join(os.Getenv("UserProfile"), ".config", "axmltools"),
	}
	if root := os.Getenv(ConfigRootEnv); root != "" {
		dirs = append(dirs, root)
	}
	var out = make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = filepath.Join(d, configName)
	}
	return out
}

// ParseConfigFile parses the first of |paths| which exists into |parser|,
// returning its path or "" if none exist. Options of the file which |parser|
// doesn't know are ignored, so that tools may share a file.
func ParseConfigFile(parser *flags.Parser, paths []string) (string, error) {
	var origOptions = parser.Options
	parser.Options |= flags.IgnoreUnknown
	defer func() { parser.Options = origOptions }()

	var ini = flags.NewIniParser(parser)
	for _, path := range paths {
		if err := ini.ParseFile(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", errors.WithMessagef(err, "parsing %s", path)
		}
	}
	return "", nil
}

// MustParseConfig requires that the Parser parse from the combination of an
// optional INI file found at ConfigPaths, configured environment bindings,
// and explicit flags, which take precedence.
func MustParseConfig(parser *flags.Parser, configName string) {
	if path, err := ParseConfigFile(parser, ConfigPaths(configName)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	} else if path != "" {
		log.WithField("path", path).Debug("parsed configuration file")
	}
	MustParseArgs(parser)
}

// MustParseArgs requires that Parser be able to ParseArgs without error.
func MustParseArgs(parser *flags.Parser) {
	var _, err = parser.ParseArgs(os.Args[1:])
	if err == nil {
		return
	}
	var flagErr, ok = err.(*flags.Error)
	if !ok {
		// A command Execute failed, rather than parsing.
		log.WithField("err", err).Fatal("command failed")
	}

	switch flagErr.Type {
	case flags.ErrDuplicatedFlag, flags.ErrTag, flags.ErrInvalidTag, flags.ErrShortNameTooLong, flags.ErrMarshal:
		// The configuration struct itself is malformed.
		panic(err)

	case flags.ErrCommandRequired, flags.ErrHelp:
		if flagErr.Type == flags.ErrCommandRequired || parser.Options&flags.PrintErrors == 0 {
			fmt.Fprintln(os.Stderr)
			parser.WriteHelp(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "\nVersion %s, built at %s.\n", Version, BuildDate)
		os.Exit(1)

	default:
		// go-flags has already printed the input error.
		os.Exit(1)
	}
}

// AddPrintConfigCmd to the Parser. The "print-config" command writes the
// combined configuration of |configName|, flags, and environment to stdout in
// INI format, which may itself be saved as |configName|.
func AddPrintConfigCmd(parser *flags.Parser, configName string) {
	parser.AddCommand("print-config", "Print combined configuration and exit", `
print-config parses the combined configuration from `+configName+`, flags,
and environment variables, and then writes the configuration to stdout in INI format.
`, &printConfig{Parser: parser, out: os.Stdout})
}

type printConfig struct {
	*flags.Parser `no-flag:"t"`
	out           io.Writer
}

func (p printConfig) Execute([]string) error {
	flags.NewIniParser(p.Parser).Write(p.out,
		flags.IniIncludeComments|flags.IniCommentDefaults|flags.IniIncludeDefaults)
	return nil
}
