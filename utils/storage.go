package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Job directory layout:
//
//	<jobsRoot>/<jobID>/seg_<id>.mp4
//	<jobsRoot>/<jobID>/seg_<id>_last.png
//	<jobsRoot>/<jobID>/output.mp4

// EnsureJobDir creates the directory for a job and returns its path.
func EnsureJobDir(jobsRoot, jobID string) (string, error) {
	dir := filepath.Join(jobsRoot, jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create job directory %s: %w", dir, err)
	}
	return dir, nil
}

// SegmentPath returns the clip path for a segment id within a job.
func SegmentPath(jobsRoot, jobID string, segID int) string {
	return filepath.Join(jobsRoot, jobID, fmt.Sprintf("seg_%d.mp4", segID))
}

// LastFramePath returns the extracted-frame path for a segment id within a job.
func LastFramePath(jobsRoot, jobID string, segID int) string {
	return filepath.Join(jobsRoot, jobID, fmt.Sprintf("seg_%d_last.png", segID))
}

// OutputPath returns the concatenated-output path for a job.
func OutputPath(jobsRoot, jobID string) string {
	return filepath.Join(jobsRoot, jobID, "output.mp4")
}

// StreamToFile writes r to destPath incrementally, creating parent
// directories as needed. A half-written file is removed on copy failure.
func StreamToFile(r io.Reader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}

	return out.Close()
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveJobDir deletes a job directory and everything under it. Cleanup is
// always explicit; nothing in the pipeline calls this.
func RemoveJobDir(jobsRoot, jobID string) error {
	return os.RemoveAll(filepath.Join(jobsRoot, jobID))
}
