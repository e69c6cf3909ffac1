package metadata

import (
	"fmt"
	"os"
	"time"

	"github.com/djherbis/times"
)

type fileTimeSet struct {
	CreationTime string
	AccessTime   string
	ChangeTime   string
}

func stat(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	return info, nil
}

// fileTimes leaves a field empty when the platform does not track it.
func fileTimes(path string) (fileTimeSet, error) {
	ts, err := times.Stat(path)
	if err != nil {
		return fileTimeSet{}, err
	}
	result := fileTimeSet{
		AccessTime: ts.AccessTime().Format(time.RFC3339),
	}
	if ts.HasChangeTime() {
		result.ChangeTime = ts.ChangeTime().Format(time.RFC3339)
	}
	if ts.HasBirthTime() {
		result.CreationTime = ts.BirthTime().Format(time.RFC3339)
	}
	return result, nil
}
