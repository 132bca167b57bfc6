package mainboilerplate

import (
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// AddCommandFunc registers a sub-command with a parent.
type AddCommandFunc func(*flags.Command) error

// CommandRegistry collects sub-commands, keyed on the dotted name of their
// parent command, for registration under a github.com/jessevdk/go-flags.Command.
// Commands of separate files may register from init functions.
type CommandRegistry map[string][]AddCommandFunc

// NewCommandRegistry creates a new registry.
func NewCommandRegistry() CommandRegistry {
	return make(CommandRegistry)
}

// AddCommand registers |command| under |parentName|, which separates nested
// command names with dots. The root command is "".
//
//	AddCommand("", "tables", ...)
//	AddCommand("tables.level2", ...)
func (cr CommandRegistry) AddCommand(parentName, command, shortDescription, longDescription string, data interface{}) {
	cr[parentName] = append(cr[parentName], func(cmd *flags.Command) error {
		var _, err = cmd.AddCommand(command, shortDescription, longDescription, data)
		return errors.WithMessagef(err, "adding command %q", command)
	})
}

// AddCommands adds commands registered under |rootName| to |rootCmd|. If
// |recursive|, commands registered under each added command are added as well.
func (cr CommandRegistry) AddCommands(rootName string, rootCmd *flags.Command, recursive bool) error {
	for _, fn := range cr[rootName] {
		if err := fn(rootCmd); err != nil {
			return err
		}
	}
	if !recursive {
		return nil
	}
	for _, cmd := range rootCmd.Commands() {
		var name = cmd.Name
		if rootName != "" {
			name = rootName + "." + name
		}
		if err := cr.AddCommands(name, cmd, recursive); err != nil {
			return err
		}
	}
	return nil
}
