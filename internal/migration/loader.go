package migration

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FileExtension marks migration files in a migrations directory
const FileExtension = ".sql"

// LoadDir reads every *.sql file in dir, sorted by filename. Each file is one
// migration named after the file without its extension.
func LoadDir(fs afero.Fs, dir string) ([]Migration, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", dir, err)
	}

	var names []string
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), FileExtension) {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := afero.ReadFile(fs, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		m := Migration{
			Name:       strings.TrimSuffix(name, FileExtension),
			Statements: SplitStatements(string(data)),
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	return migrations, nil
}

// SplitStatements splits a SQL script into statements. A statement ends on a
// line ending with ';'. Lines starting with "--" are dropped.
func SplitStatements(script string) []string {
	var (
		statements []string
		current    []string
	)

	flush := func() {
		stmt := strings.TrimSpace(strings.Join(current, "\n"))
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		current = append(current, strings.TrimRight(line, "\r"))
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()

	return statements
}
