package cli

import (
	"fmt"
	"io"
	"strconv"
)

// SchemaMigrator applies schema migrations. *db.Migrator satisfies it.
type SchemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
}

// MigrateCommand runs "migrate up", "migrate down [n]" or "migrate version".
// down without a count rolls back one step.
func MigrateCommand(m SchemaMigrator, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: storehq migrate up|down [n|all]|version")
		return 2
	}
	var err error
	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if len(args) > 1 {
			if args[1] == "all" {
				err = m.Down()
				break
			}
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps <= 0 {
				fmt.Fprintf(stderr, "migrate down: invalid step count %q\n", args[1])
				return 2
			}
		}
		err = m.Steps(-steps)
	case "version":
	default:
		fmt.Fprintf(stderr, "migrate: unknown subcommand %q\n", args[0])
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "migrate %s: %v\n", args[0], err)
		return 1
	}
	version, dirty, err := m.Version()
	if err != nil {
		fmt.Fprintf(stderr, "migrate version: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "schema version %d (dirty=%t)\n", version, dirty)
	return 0
}
