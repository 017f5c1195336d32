// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package apperr

import (
	"maps"
	"slices"
)

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
