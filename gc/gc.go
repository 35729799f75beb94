// Package gc identifies archives superseded by a newer compress run of the
// same logical source, generalizing the teacher's reference-counting sweep
// over data objects into a decide/act split over whole archive files: this
// package only decides, deletion is left to the caller.
package gc

import (
	"github.com/xiaoz/bitasync/internal/logging"
	"github.com/xiaoz/bitasync/internal/set"
)

var log = logging.Get("gc")

// Sweep reports which of archives are not named in retain, in the order
// they appeared in archives. The caller decides how (or whether) to delete
// them; Sweep never touches the filesystem.
func Sweep(archives []string, retain []string) (freed []string, err error) {
	keep := set.New[string]()
	for _, r := range retain {
		keep.Add(r)
	}
	for _, a := range archives {
		if !keep.Contains(a) {
			freed = append(freed, a)
		}
	}
	log.Infof("gc sweep: %d archives, %d retained, %d eligible for removal", len(archives), len(retain), len(freed))
	return freed, nil
}
