package schema

import (
	"fmt"
	"strings"

	"github.com/go-sif/xmatch"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FixMode determines which columns of a joined table are renamed
type FixMode int

const (
	// FixNone leaves column names unchanged, unless they would collide outright
	FixNone FixMode = iota
	// FixDuplicates renames columns whose names also appear in another joined table
	FixDuplicates
	// FixAll renames every column
	FixAll
)

// FixAction describes how the column names of one table are deduplicated when tables are joined
type FixAction struct {
	Mode   FixMode
	Suffix string
}

// NoFix leaves column names unchanged where possible
func NoFix() FixAction {
	return FixAction{Mode: FixNone}
}

// RenameDuplicates appends suffix to column names which also appear in another joined table
func RenameDuplicates(suffix string) FixAction {
	return FixAction{Mode: FixDuplicates, Suffix: suffix}
}

// RenameAll appends suffix to every column name
func RenameAll(suffix string) FixAction {
	return FixAction{Mode: FixAll, Suffix: suffix}
}

// ParseFixAction parses "none", "dups" or "all"; suffix is used by the latter two
func ParseFixAction(name string, suffix string) (FixAction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return NoFix(), nil
	case "dups":
		return RenameDuplicates(suffix), nil
	case "all":
		return RenameAll(suffix), nil
	default:
		return FixAction{}, fmt.Errorf("Unknown column fix action %q (expected none, dups or all)", name)
	}
}

// FixColumns produces renamed copies of schemas which are about to be concatenated, applying
// actions[i] to schemas[i]. Name comparison is case-insensitive. Whatever the actions, the
// returned Schemas never contain two columns with the same name: any remaining collisions are
// resolved by appending a numeric suffix.
func FixColumns(schemas []xmatch.Schema, actions []FixAction) ([]xmatch.Schema, error) {
	if len(schemas) != len(actions) {
		return nil, fmt.Errorf("Got %d fix actions for %d schemas", len(actions), len(schemas))
	}
	// count which tables each name appears in
	owners := make(map[string]map[int]bool)
	for i, s := range schemas {
		for _, name := range s.ColumnNames() {
			key := foldName(name)
			if owners[key] == nil {
				owners[key] = make(map[int]bool)
			}
			owners[key][i] = true
		}
	}
	taken := make(map[string]bool)
	fixed := make([]xmatch.Schema, len(schemas))
	for i, s := range schemas {
		out := CreateSchema()
		action := actions[i]
		err := s.ForEachColumn(func(name string, col xmatch.Column) error {
			newName := name
			switch action.Mode {
			case FixAll:
				newName = name + action.Suffix
			case FixDuplicates:
				if len(owners[foldName(name)]) > 1 {
					newName = name + action.Suffix
				}
			}
			newName = uniqueName(newName, taken)
			taken[foldName(newName)] = true
			info := Info(col)
			info.Name = newName
			_, err := out.CreateColumn(info)
			return err
		})
		if err != nil {
			return nil, err
		}
		fixed[i] = out
	}
	return fixed, nil
}

// foldName produces the key under which column names are compared: NFKC-normalized and case-folded
func foldName(name string) string {
	return cases.Fold().String(norm.NFKC.String(name))
}

// NamesClash returns true iff two column names would collide once joined
func NamesClash(a string, b string) bool {
	return foldName(a) == foldName(b)
}

// uniqueName appends _1, _2, ... to name until it does not appear in taken
func uniqueName(name string, taken map[string]bool) string {
	if !taken[foldName(name)] {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !taken[foldName(candidate)] {
			return candidate
		}
	}
}

// AppendUnique appends a column to s, renaming it with a numeric suffix if its name
// (compared case-insensitively) is already present. It returns the name actually used.
func AppendUnique(s xmatch.Schema, info xmatch.ColumnInfo) (string, error) {
	taken := make(map[string]bool, s.NumColumns())
	for _, name := range s.ColumnNames() {
		taken[foldName(name)] = true
	}
	info.Name = uniqueName(info.Name, taken)
	if _, err := s.CreateColumn(info); err != nil {
		return "", err
	}
	return info.Name, nil
}
