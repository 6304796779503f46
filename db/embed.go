// Package db embeds the PostgreSQL migrations and the demo store.
package db

import (
	"embed"
	"io/fs"
	"path"
	"slices"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DemoStore is the JSON of the demo storefront loaded by seed-db.
//
//go:embed seed/store.json
var DemoStore []byte

// Migration is one schema script.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the schema scripts ordered by file name.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	slices.Sort(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: path.Base(name), SQL: string(data)})
	}
	return out, nil
}
