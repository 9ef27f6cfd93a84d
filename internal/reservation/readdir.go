package reservation

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/mistakeknot/agentmail/internal/core"
)

// ReadDir loads every reservation artifact in dir, skipping entries that do
// not parse. The guard runtime uses this: a hook invocation has no caller to
// hand a typed error to, and one corrupt artifact must not wedge commits.
// Skipped paths are returned so the hook can warn about them.
func ReadDir(dir string) (reservations []core.Reservation, skipped []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			skipped = append(skipped, path)
			continue
		}
		var art artifact
		if err := json.Unmarshal(data, &art); err != nil {
			skipped = append(skipped, path)
			continue
		}
		reservations = append(reservations, art.toReservation(""))
	}
	return reservations, skipped, nil
}
